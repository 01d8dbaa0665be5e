package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"school-chatbot/internal/models"
)

func profile() Profile {
	return Profile{
		Student: models.Student{ID: 7, Name: "Asha"},
		Marks: []models.AcademicRecord{
			{StudentID: 7, Subject: "Math", Score: 92},
			{StudentID: 7, Subject: "Science", Score: 67.5},
		},
		Attendance: []models.AttendanceRecord{
			{StudentID: 7, Date: models.NewDate(time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC)), Status: "present"},
		},
	}
}

func TestAdvisor(t *testing.T) {
	out := Advisor(models.RoleParent, profile(), "how can I improve")

	assert.Contains(t, out, "User role: parent")
	assert.Contains(t, out, "Name: Asha")
	assert.Contains(t, out, "Math: 92\n")
	assert.Contains(t, out, "Science: 67.5\n")
	assert.Contains(t, out, "2025-10-08: present")
	assert.Contains(t, out, `"how can I improve"`)
	assert.Contains(t, out, "Answer ONLY using the data above")
}

func TestAdvisorWithoutRecords(t *testing.T) {
	out := Advisor(models.RoleStudent, Profile{Student: models.Student{ID: 3, Name: "Ravi"}}, "feedback")
	assert.Contains(t, out, "No academic records available.")
	assert.Contains(t, out, "No attendance records available.")
}

func TestSubjectPerformance(t *testing.T) {
	p := profile()
	p.Marks = p.Marks[:1]
	out := SubjectPerformance(models.RoleStudent, p, "Mathematics", "how am I doing in maths")

	assert.Contains(t, out, "Subject asked about: Mathematics")
	assert.Contains(t, out, "Math: 92")
	assert.NotContains(t, out, "Science")
	assert.NotContains(t, out, "Attendance")
}

func TestFallbackHasNoRecords(t *testing.T) {
	out := Fallback(models.RoleStudent, "when is the next exam")
	assert.Contains(t, out, "No student records are available")
	assert.NotContains(t, out, "Student Profile")
}

func TestCompose(t *testing.T) {
	out := Compose(models.GenerationRequest{Role: models.RoleParent, Prompt: "hi"})
	assert.Contains(t, out, SystemInstruction)
	assert.Contains(t, out, "User (parent): hi")
}
