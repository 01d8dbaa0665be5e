package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"school-chatbot/internal/models"
	"school-chatbot/internal/repository"
)

// ImportColumns is the header every bulk upload must carry, in any order.
var ImportColumns = []string{"student_id", "name", "subject", "score", "date", "status"}

// AdminService manages the records the chat pipeline reads.
type AdminService interface {
	ListStudents(ctx context.Context) ([]*models.Student, error)
	CreateStudent(ctx context.Context, input models.CreateStudentInput) (*models.Student, error)
	UpdateStudent(ctx context.Context, id int64, input models.UpdateStudentInput) error
	DeleteStudent(ctx context.Context, id int64) error
	SaveMark(ctx context.Context, input models.MarkInput) error
	SaveAttendance(ctx context.Context, input models.AttendanceInput) error
	Import(ctx context.Context, r io.Reader) (*models.ImportSummary, error)
	Report(ctx context.Context, id int64) (*models.StudentReport, error)
}

type adminService struct {
	repo   repository.StudentRepository
	logger *zap.Logger
}

func NewAdminService(repo repository.StudentRepository, logger *zap.Logger) AdminService {
	return &adminService{repo: repo, logger: logger}
}

func (s *adminService) ListStudents(ctx context.Context) ([]*models.Student, error) {
	return s.repo.ListStudents(ctx)
}

func (s *adminService) CreateStudent(ctx context.Context, input models.CreateStudentInput) (*models.Student, error) {
	student := &models.Student{ID: input.ID, Name: strings.TrimSpace(input.Name)}
	if err := s.repo.CreateStudent(ctx, student); err != nil {
		return nil, err
	}
	s.logger.Info("Student created", zap.Int64("student_id", student.ID))
	return student, nil
}

func (s *adminService) UpdateStudent(ctx context.Context, id int64, input models.UpdateStudentInput) error {
	return s.repo.UpdateStudentName(ctx, id, strings.TrimSpace(input.Name))
}

func (s *adminService) DeleteStudent(ctx context.Context, id int64) error {
	if err := s.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Student deleted", zap.Int64("student_id", id))
	return nil
}

func (s *adminService) SaveMark(ctx context.Context, input models.MarkInput) error {
	return s.repo.UpsertMark(ctx, &models.AcademicRecord{
		StudentID: input.StudentID,
		Subject:   strings.TrimSpace(input.Subject),
		Score:     input.Score,
	})
}

func (s *adminService) SaveAttendance(ctx context.Context, input models.AttendanceInput) error {
	if input.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidUpload)
	}
	return s.repo.UpsertAttendance(ctx, &models.AttendanceRecord{
		StudentID: input.StudentID,
		Date:      input.Date,
		Status:    strings.ToLower(strings.TrimSpace(input.Status)),
	})
}

// Import parses a CSV upload and applies it in one transaction. Rows may
// leave subject/score or date/status empty.
func (s *adminService) Import(ctx context.Context, r io.Reader) (*models.ImportSummary, error) {
	rows, err := ParseImport(r)
	if err != nil {
		return nil, err
	}
	return s.repo.ImportRows(ctx, rows)
}

// ParseImport reads the CSV body of a bulk upload.
func ParseImport(r io.Reader) ([]models.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty", ErrInvalidUpload)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range ImportColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing required columns, required: %s",
				ErrInvalidUpload, strings.Join(ImportColumns, ", "))
		}
	}

	var rows []models.ImportRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
		}
		row, err := parseImportRow(record, index)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidUpload, line, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrInvalidUpload)
	}
	return rows, nil
}

func parseImportRow(record []string, index map[string]int) (models.ImportRow, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[index[name]])
	}

	var row models.ImportRow
	id, err := strconv.ParseInt(field("student_id"), 10, 64)
	if err != nil || id <= 0 {
		return row, fmt.Errorf("invalid student_id %q", field("student_id"))
	}
	row.StudentID = id
	row.Name = field("name")

	row.Subject = field("subject")
	if raw := field("score"); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil || score < 0 || score > 100 {
			return row, fmt.Errorf("invalid score %q", raw)
		}
		row.Score = &score
	}
	if (row.Subject == "") != (row.Score == nil) {
		return row, fmt.Errorf("subject and score must be given together")
	}

	row.Status = strings.ToLower(field("status"))
	if raw := field("date"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return row, err
		}
		row.Date = &d
	}
	if (row.Status == "") != (row.Date == nil) {
		return row, fmt.Errorf("date and status must be given together")
	}
	return row, nil
}

// Report returns the student's records with aggregate figures, or
// repository.ErrStudentNotFound.
func (s *adminService) Report(ctx context.Context, id int64) (*models.StudentReport, error) {
	student, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, repository.ErrStudentNotFound
	}
	marks, err := s.repo.ListAcademicRecords(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	attendance, err := s.repo.ListAttendanceRecords(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	report := &models.StudentReport{
		Student:    *student,
		Marks:      marks,
		Attendance: attendance,
	}
	if report.Marks == nil {
		report.Marks = []models.AcademicRecord{}
	}
	if report.Attendance == nil {
		report.Attendance = []models.AttendanceRecord{}
	}
	if len(marks) > 0 {
		var total float64
		for _, m := range marks {
			total += m.Score
		}
		report.Summary.AverageScore = roundTo1(total / float64(len(marks)))
	}
	report.Summary.DaysRecorded = len(attendance)
	for _, a := range attendance {
		if a.Present() {
			report.Summary.DaysPresent++
		}
	}
	report.Summary.AttendancePercent = roundTo1(percent(report.Summary.DaysPresent, len(attendance)))
	return report, nil
}
