package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"school-chatbot/internal/models"
)

var (
	ErrStudentExists   = errors.New("student already exists")
	ErrStudentNotFound = errors.New("student not found")
)

// StudentRepository reads and writes students with their marks and
// attendance. Reads return nil, nil for an absent student.
type StudentRepository interface {
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	ListStudents(ctx context.Context) ([]*models.Student, error)
	ListAcademicRecords(ctx context.Context, studentID int64, subjectAliases []string) ([]models.AcademicRecord, error)
	ListAttendanceRecords(ctx context.Context, studentID int64, dateRange *models.DateRange) ([]models.AttendanceRecord, error)
	ListRecentAttendance(ctx context.Context, studentID int64, limit int) ([]models.AttendanceRecord, error)
	Snapshot(ctx context.Context, studentID int64, attendanceLimit int) (*models.StudentSnapshot, error)

	CreateStudent(ctx context.Context, student *models.Student) error
	UpdateStudentName(ctx context.Context, id int64, name string) error
	DeleteStudent(ctx context.Context, id int64) error
	UpsertMark(ctx context.Context, mark *models.AcademicRecord) error
	UpsertAttendance(ctx context.Context, record *models.AttendanceRecord) error
	ImportRows(ctx context.Context, rows []models.ImportRow) (*models.ImportSummary, error)
}

type studentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewStudentRepository(db *sqlx.DB, logger *zap.Logger) StudentRepository {
	return &studentRepository{db: db, logger: logger}
}

const (
	upsertMarkQuery = `INSERT INTO academics (student_id, subject, score) VALUES (?, ?, ?)
		ON CONFLICT (student_id, subject) DO UPDATE SET score = excluded.score`
	upsertAttendanceQuery = `INSERT INTO attendance (student_id, date, status) VALUES (?, ?, ?)
		ON CONFLICT (student_id, date) DO UPDATE SET status = excluded.status`
)

func (r *studentRepository) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	query := r.db.Rebind(`SELECT id, name, created_at FROM students WHERE id = ?`)
	err := r.db.GetContext(ctx, &student, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Student not found
		}
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) ListStudents(ctx context.Context) ([]*models.Student, error) {
	var students []*models.Student
	err := r.db.SelectContext(ctx, &students, `SELECT id, name, created_at FROM students ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return students, nil
}

// ListAcademicRecords returns the student's marks ordered by subject. A
// non-empty subjectAliases restricts the result to subjects whose lower-cased
// name is one of the aliases.
func (r *studentRepository) ListAcademicRecords(ctx context.Context, studentID int64, subjectAliases []string) ([]models.AcademicRecord, error) {
	return selectMarks(ctx, r.db, studentID, subjectAliases)
}

func selectMarks(ctx context.Context, q sqlx.ExtContext, studentID int64, subjectAliases []string) ([]models.AcademicRecord, error) {
	query := `SELECT id, student_id, subject, score FROM academics WHERE student_id = ?`
	args := []interface{}{studentID}

	if len(subjectAliases) > 0 {
		lowered := make([]string, len(subjectAliases))
		for i, a := range subjectAliases {
			lowered[i] = strings.ToLower(a)
		}
		var err error
		query, args, err = sqlx.In(query+` AND LOWER(subject) IN (?)`, studentID, lowered)
		if err != nil {
			return nil, fmt.Errorf("failed to expand subject filter: %w", err)
		}
	}

	var records []models.AcademicRecord
	err := sqlx.SelectContext(ctx, q, &records, q.Rebind(query+` ORDER BY subject, id`), args...)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListAttendanceRecords returns attendance ordered by date, optionally
// limited to an inclusive date range.
func (r *studentRepository) ListAttendanceRecords(ctx context.Context, studentID int64, dateRange *models.DateRange) ([]models.AttendanceRecord, error) {
	query := `SELECT id, student_id, date, status FROM attendance WHERE student_id = ?`
	args := []interface{}{studentID}
	if dateRange != nil {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, dateRange.From, dateRange.To)
	}

	var records []models.AttendanceRecord
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(query+` ORDER BY date, id`), args...)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListRecentAttendance returns up to limit records, most recent first.
func (r *studentRepository) ListRecentAttendance(ctx context.Context, studentID int64, limit int) ([]models.AttendanceRecord, error) {
	return selectRecentAttendance(ctx, r.db, studentID, limit)
}

func selectRecentAttendance(ctx context.Context, q sqlx.ExtContext, studentID int64, limit int) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	query := q.Rebind(`SELECT id, student_id, date, status FROM attendance WHERE student_id = ? ORDER BY date DESC, id DESC LIMIT ?`)
	err := sqlx.SelectContext(ctx, q, &records, query, studentID, limit)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Snapshot reads all marks and the attendanceLimit most recent attendance
// rows in one read-only transaction, so both come from the same state of the
// store.
func (r *studentRepository) Snapshot(ctx context.Context, studentID int64, attendanceLimit int) (*models.StudentSnapshot, error) {
	tx, err := r.db.BeginTxx(ctx, r.snapshotOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.Error("Failed to rollback snapshot", zap.Error(rbErr))
		}
	}()

	marks, err := selectMarks(ctx, tx, studentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list marks: %w", err)
	}
	recent, err := selectRecentAttendance(ctx, tx, studentID, attendanceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to end snapshot: %w", err)
	}
	return &models.StudentSnapshot{Marks: marks, RecentAttendance: recent}, nil
}

// snapshotOptions asks postgres for one snapshot across statements. A sqlite
// transaction already reads a single snapshot and rejects isolation levels.
func (r *studentRepository) snapshotOptions() *sql.TxOptions {
	if r.db.DriverName() == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

func (r *studentRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM students WHERE id = ?`), student.ID); err != nil {
			return err
		}
		if count > 0 {
			return ErrStudentExists
		}
		student.CreatedAt = time.Now().UTC()
		query := tx.Rebind(`INSERT INTO students (id, name, created_at) VALUES (?, ?, ?)`)
		_, err := tx.ExecContext(ctx, query, student.ID, student.Name, student.CreatedAt)
		return err
	})
}

func (r *studentRepository) UpdateStudentName(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE students SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *studentRepository) DeleteStudent(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, q := range []string{
			`DELETE FROM academics WHERE student_id = ?`,
			`DELETE FROM attendance WHERE student_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(q), id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM students WHERE id = ?`), id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func (r *studentRepository) UpsertMark(ctx context.Context, mark *models.AcademicRecord) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireStudent(ctx, tx, mark.StudentID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(upsertMarkQuery), mark.StudentID, mark.Subject, mark.Score)
		return err
	})
}

func (r *studentRepository) UpsertAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireStudent(ctx, tx, record.StudentID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(upsertAttendanceQuery), record.StudentID, record.Date, record.Status)
		return err
	})
}

// ImportRows applies a bulk upload in one transaction: every row upserts its
// student, and its mark and attendance when present.
func (r *studentRepository) ImportRows(ctx context.Context, rows []models.ImportRow) (*models.ImportSummary, error) {
	summary := &models.ImportSummary{Rows: len(rows)}
	seen := make(map[int64]bool)

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		for i, row := range rows {
			if !seen[row.StudentID] {
				seen[row.StudentID] = true
				if err := upsertStudent(ctx, tx, row.StudentID, row.Name); err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				summary.Students++
			}
			if row.Subject != "" && row.Score != nil {
				if _, err := tx.ExecContext(ctx, tx.Rebind(upsertMarkQuery), row.StudentID, row.Subject, *row.Score); err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				summary.Marks++
			}
			if row.Date != nil && row.Status != "" {
				if _, err := tx.ExecContext(ctx, tx.Rebind(upsertAttendanceQuery), row.StudentID, *row.Date, row.Status); err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				summary.Attendance++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Imported rows",
		zap.Int("rows", summary.Rows),
		zap.Int("students", summary.Students),
		zap.Int("marks", summary.Marks),
		zap.Int("attendance", summary.Attendance))
	return summary, nil
}

func upsertStudent(ctx context.Context, tx *sqlx.Tx, id int64, name string) error {
	if name == "" {
		return requireStudent(ctx, tx, id)
	}
	query := tx.Rebind(`INSERT INTO students (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`)
	_, err := tx.ExecContext(ctx, query, id, name, time.Now().UTC())
	return err
}

func requireStudent(ctx context.Context, tx *sqlx.Tx, id int64) error {
	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM students WHERE id = ?`), id); err != nil {
		return err
	}
	if count == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *studentRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit()
}
