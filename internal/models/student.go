package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Student represents a row of the 'students' table.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AcademicRecord is one subject score of a student.
type AcademicRecord struct {
	ID        int64   `db:"id" json:"id"`
	StudentID int64   `db:"student_id" json:"student_id"`
	Subject   string  `db:"subject" json:"subject"`
	Score     float64 `db:"score" json:"score"`
}

// AttendanceRecord is the attendance status of a student on one date.
type AttendanceRecord struct {
	ID        int64  `db:"id" json:"id"`
	StudentID int64  `db:"student_id" json:"student_id"`
	Date      Date   `db:"date" json:"date"`
	Status    string `db:"status" json:"status"` // present, absent, P, A, ...
}

// Present reports whether the stored status counts as present. Any status
// starting with "p" does.
func (r AttendanceRecord) Present() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Status)), "p")
}

// StudentSnapshot holds records read together in one transaction.
type StudentSnapshot struct {
	Marks            []AcademicRecord
	RecentAttendance []AttendanceRecord // most recent first
}

// DateRange is an inclusive date filter for attendance lookups.
type DateRange struct {
	From Date
	To   Date
}

// Date is a calendar date stored as DATE in PostgreSQL and TEXT in SQLite.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parse(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	return d.parse(strings.Trim(string(b), `"`))
}
