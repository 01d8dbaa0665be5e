package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the structure of the JWT claims.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// LoginInput is the admin login body.
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateStudentInput represents input for creating a student.
type CreateStudentInput struct {
	ID   int64  `json:"id" binding:"required,gt=0"`
	Name string `json:"name" binding:"required"`
}

// UpdateStudentInput represents input for renaming a student.
type UpdateStudentInput struct {
	Name string `json:"name" binding:"required"`
}

// MarkInput sets one subject score.
type MarkInput struct {
	StudentID int64   `json:"student_id" binding:"required,gt=0"`
	Subject   string  `json:"subject" binding:"required"`
	Score     float64 `json:"score" binding:"gte=0,lte=100"`
}

// AttendanceInput sets the status of one date.
type AttendanceInput struct {
	StudentID int64  `json:"student_id" binding:"required,gt=0"`
	Date      Date   `json:"date"`
	Status    string `json:"status" binding:"required"`
}

// ImportRow is one parsed line of a bulk CSV upload. Subject/Score and
// Date/Status are optional pairs.
type ImportRow struct {
	StudentID int64
	Name      string
	Subject   string
	Score     *float64
	Date      *Date
	Status    string
}

// ImportSummary reports what a bulk upload changed.
type ImportSummary struct {
	Rows       int `json:"rows"`
	Students   int `json:"students"`
	Marks      int `json:"marks"`
	Attendance int `json:"attendance"`
}

// StudentReport is the administrative snapshot of one student.
type StudentReport struct {
	Student    Student            `json:"student"`
	Marks      []AcademicRecord   `json:"marks"`
	Attendance []AttendanceRecord `json:"attendance"`
	Summary    ReportSummary      `json:"summary"`
}

// ReportSummary aggregates a StudentReport.
type ReportSummary struct {
	AverageScore      float64 `json:"average_score"`
	DaysRecorded      int     `json:"days_recorded"`
	DaysPresent       int     `json:"days_present"`
	AttendancePercent float64 `json:"attendance_percent"`
}
