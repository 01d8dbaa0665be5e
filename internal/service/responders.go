package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"school-chatbot/internal/intent"
	"school-chatbot/internal/models"
	"school-chatbot/internal/prompt"
	"school-chatbot/internal/timeparse"
)

const (
	StudentNotFoundReply = "Student record not found."
	NoMarksReply         = "No academic records found."

	invalidMonthReply = "Invalid month specified. Please use January to December."
	invalidYearReply  = "Invalid year specified. Attendance data is available from 2000 up to the current year."
	invalidDateReply  = "Invalid date specified. Please use a real calendar date, for example 2025-10-08."
	incompleteReply   = "Please specify the month and year for attendance, for example \"attendance of March 2025\"."
)

func (r *Router) average(ctx context.Context, student *models.Student) (string, error) {
	marks, err := r.students.ListAcademicRecords(ctx, student.ID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list marks: %w", err)
	}
	if len(marks) == 0 {
		return NoMarksReply, nil
	}
	var total float64
	for _, m := range marks {
		total += m.Score
	}
	return fmt.Sprintf("Average score of %s: %s across %d subjects.",
		student.Name, formatRounded(total/float64(len(marks))), len(marks)), nil
}

func (r *Router) marks(ctx context.Context, student *models.Student) (string, error) {
	marks, err := r.students.ListAcademicRecords(ctx, student.ID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list marks: %w", err)
	}
	if len(marks) == 0 {
		return NoMarksReply, nil
	}
	lines := []string{"Academic Records:"}
	for _, m := range marks {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Subject, prompt.FormatScore(m.Score)))
	}
	return strings.Join(lines, "\n"), nil
}

// strongestWeakest picks the highest (or lowest) score. Ties go to the
// subject listed first.
func (r *Router) strongestWeakest(ctx context.Context, student *models.Student, weakest bool) (string, error) {
	marks, err := r.students.ListAcademicRecords(ctx, student.ID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list marks: %w", err)
	}
	if len(marks) == 0 {
		return NoMarksReply, nil
	}
	best := marks[0]
	for _, m := range marks[1:] {
		if (weakest && m.Score < best.Score) || (!weakest && m.Score > best.Score) {
			best = m
		}
	}
	kind := "strongest"
	if weakest {
		kind = "weakest"
	}
	return fmt.Sprintf("The %s subject is %s with a score of %s.", kind, best.Subject, prompt.FormatScore(best.Score)), nil
}

func (r *Router) attendance(ctx context.Context, student *models.Student, t timeparse.Result) (string, error) {
	switch t.Kind {
	case timeparse.KindInvalidMonth:
		return invalidMonthReply, nil
	case timeparse.KindInvalidYear:
		return invalidYearReply, nil
	case timeparse.KindInvalidDate:
		return invalidDateReply, nil
	case timeparse.KindIncomplete:
		return incompleteReply, nil
	}

	var dateRange *models.DateRange
	scope := "all recorded dates"
	if t.Found() {
		dateRange = &models.DateRange{From: models.NewDate(t.Window.Start), To: models.NewDate(t.Window.End)}
		scope = t.Window.Label
	}
	records, err := r.students.ListAttendanceRecords(ctx, student.ID, dateRange)
	if err != nil {
		return "", fmt.Errorf("failed to list attendance: %w", err)
	}

	if t.Found() && t.Window.SingleDay() {
		if len(records) == 0 {
			return fmt.Sprintf("No attendance record found for %s.", scope), nil
		}
		status := "Absent"
		if records[0].Present() {
			status = "Present"
		}
		return fmt.Sprintf("Attendance on %s: %s.", scope, status), nil
	}

	if len(records) == 0 {
		return fmt.Sprintf("No attendance records found for %s.", scope), nil
	}
	return attendanceSummary(scope, records), nil
}

func attendanceSummary(scope string, records []models.AttendanceRecord) string {
	present := 0
	for _, rec := range records {
		if rec.Present() {
			present++
		}
	}
	total := len(records)
	return fmt.Sprintf("Attendance for %s:\nTotal days recorded: %d\nDays present: %d\nDays absent: %d\nAttendance: %s%%",
		scope, total, present, total-present, formatRounded(percent(present, total)))
}

func (r *Router) subjectPerformance(ctx context.Context, req *models.ChatRequest, student *models.Student, subject intent.Subject, logger *zap.Logger) (string, error) {
	marks, err := r.students.ListAcademicRecords(ctx, student.ID, subject.Aliases)
	if err != nil {
		return "", fmt.Errorf("failed to list %s marks: %w", subject.Name, err)
	}
	if len(marks) == 0 {
		return fmt.Sprintf("No academic records found for %s.", subject.Name), nil
	}
	p := prompt.Profile{Student: *student, Marks: marks}
	return r.generate(ctx, "subject_performance", req.Role,
		prompt.SubjectPerformance(req.Role, p, subject.Name, req.Message), logger), nil
}

func (r *Router) advisor(ctx context.Context, req *models.ChatRequest, student *models.Student, logger *zap.Logger) (string, error) {
	snap, err := r.students.Snapshot(ctx, student.ID, r.cfg.AdvisorAttendanceWindow)
	if err != nil {
		return "", err
	}
	p := prompt.Profile{Student: *student, Marks: snap.Marks, Attendance: snap.RecentAttendance}
	return r.generate(ctx, "advisor", req.Role, prompt.Advisor(req.Role, p, req.Message), logger), nil
}

func fallbackPrompt(req *models.ChatRequest) string {
	return prompt.Fallback(req.Role, req.Message)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatRounded rounds to one decimal and drops a trailing ".0".
func formatRounded(v float64) string {
	return strconv.FormatFloat(roundTo1(v), 'f', -1, 64)
}
