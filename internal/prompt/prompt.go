// Package prompt builds the instruction blocks sent to the generative service.
// Every grounded prompt embeds only the requesting student's own records.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"school-chatbot/internal/models"
)

// SystemInstruction is sent to every provider ahead of the user prompt.
const SystemInstruction = "You are a smart academic advisor for a school. " +
	"Analyze student performance, attendance, and marks using only the data you are given. " +
	"Give personalized, positive, and practical improvement suggestions. " +
	"Never invent marks, dates, or attendance that are not in the data."

// rules is the constraint block appended to every grounded prompt.
const rules = `Rules:
- Answer ONLY using the data above
- If data is missing, say you do not have that information
- Do not invent facts, marks, dates, or names
- Be concise, polite, and supportive
- If performance is asked, give a summary and 2-3 improvement tips
- If a specific subject is asked, answer only for that subject`

// Profile is the grounding context of one student.
type Profile struct {
	Student    models.Student
	Marks      []models.AcademicRecord
	Attendance []models.AttendanceRecord // most recent first
}

// Compose joins the system instruction and a role-tagged prompt for providers
// that accept a single text input.
func Compose(req models.GenerationRequest) string {
	return fmt.Sprintf("%s\n\nUser (%s): %s", SystemInstruction, req.Role, req.Prompt)
}

// Advisor builds the performance-analysis prompt.
func Advisor(role models.Role, p Profile, question string) string {
	var b strings.Builder
	b.WriteString("You are a professional school academic advisor.\n\n")
	fmt.Fprintf(&b, "User role: %s\n\n", role)
	writeProfile(&b, p, "Academic Records:")
	b.WriteString("\nAttendance Records (recent):\n")
	if len(p.Attendance) == 0 {
		b.WriteString("No attendance records available.\n")
	}
	for _, a := range p.Attendance {
		fmt.Fprintf(&b, "%s: %s\n", a.Date, a.Status)
	}
	writeQuestion(&b, question)
	return b.String()
}

// SubjectPerformance builds the prompt for a question about one subject.
// Marks must already be filtered to that subject.
func SubjectPerformance(role models.Role, p Profile, subject, question string) string {
	var b strings.Builder
	b.WriteString("You are a professional school academic advisor.\n\n")
	fmt.Fprintf(&b, "User role: %s\n", role)
	fmt.Fprintf(&b, "Subject asked about: %s\n\n", subject)
	writeProfile(&b, p, subject+" Records:")
	writeQuestion(&b, question)
	return b.String()
}

// Fallback wraps an in-domain question no structured category covers. No
// student records are attached.
func Fallback(role models.Role, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User role: %s\n\n", role)
	b.WriteString("No student records are available for this question.\n")
	writeQuestion(&b, question)
	return b.String()
}

// Warmup is the minimal prompt used to keep a backend loaded.
const Warmup = "Reply with the single word: ready"

func writeProfile(b *strings.Builder, p Profile, heading string) {
	b.WriteString("Student Profile:\n")
	fmt.Fprintf(b, "Name: %s\n", p.Student.Name)
	fmt.Fprintf(b, "ID: %d\n\n", p.Student.ID)
	b.WriteString(heading + "\n")
	if len(p.Marks) == 0 {
		b.WriteString("No academic records available.\n")
	}
	for _, m := range p.Marks {
		fmt.Fprintf(b, "%s: %s\n", m.Subject, FormatScore(m.Score))
	}
}

func writeQuestion(b *strings.Builder, question string) {
	fmt.Fprintf(b, "\nThe user asked:\n%q\n\n", question)
	b.WriteString(rules)
	b.WriteString("\n")
}

// FormatScore prints a score without trailing zeros.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
