package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"school-chatbot/internal/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	logger := zap.NewNop()
	db, err := NewSQLiteDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, MigrateDB(db, logger))
	return db
}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, MigrateDB(db, zap.NewNop()))
}

func TestStudentCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(newTestDB(t), zap.NewNop())

	missing, err := repo.GetStudent(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.CreateStudent(ctx, &models.Student{ID: 1, Name: "Asha"}))
	assert.ErrorIs(t, repo.CreateStudent(ctx, &models.Student{ID: 1, Name: "Dup"}), ErrStudentExists)

	s, err := repo.GetStudent(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Asha", s.Name)
	assert.False(t, s.CreatedAt.IsZero())

	require.NoError(t, repo.UpdateStudentName(ctx, 1, "Asha K"))
	assert.ErrorIs(t, repo.UpdateStudentName(ctx, 99, "x"), ErrStudentNotFound)

	require.NoError(t, repo.UpsertMark(ctx, &models.AcademicRecord{StudentID: 1, Subject: "Math", Score: 90}))
	require.NoError(t, repo.DeleteStudent(ctx, 1))
	assert.ErrorIs(t, repo.DeleteStudent(ctx, 1), ErrStudentNotFound)

	marks, err := repo.ListAcademicRecords(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, marks)
}

func TestAcademicRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(newTestDB(t), zap.NewNop())
	require.NoError(t, repo.CreateStudent(ctx, &models.Student{ID: 1, Name: "Asha"}))
	require.NoError(t, repo.CreateStudent(ctx, &models.Student{ID: 2, Name: "Ravi"}))

	for _, m := range []models.AcademicRecord{
		{StudentID: 1, Subject: "Maths", Score: 70},
		{StudentID: 1, Subject: "Science", Score: 88},
		{StudentID: 2, Subject: "Maths", Score: 40},
	} {
		m := m
		require.NoError(t, repo.UpsertMark(ctx, &m))
	}
	require.NoError(t, repo.UpsertMark(ctx, &models.AcademicRecord{StudentID: 1, Subject: "Maths", Score: 75}))
	assert.ErrorIs(t, repo.UpsertMark(ctx, &models.AcademicRecord{StudentID: 5, Subject: "Maths", Score: 1}), ErrStudentNotFound)

	all, err := repo.ListAcademicRecords(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Maths", all[0].Subject)
	assert.Equal(t, 75.0, all[0].Score)

	maths, err := repo.ListAcademicRecords(ctx, 1, []string{"math", "MATHS", "mathematics"})
	require.NoError(t, err)
	require.Len(t, maths, 1)
	assert.Equal(t, int64(1), maths[0].StudentID)
}

func TestAttendanceRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(newTestDB(t), zap.NewNop())
	require.NoError(t, repo.CreateStudent(ctx, &models.Student{ID: 1, Name: "Asha"}))

	for _, d := range []string{"2025-10-31", "2025-09-30", "2025-10-01", "2025-11-01"} {
		require.NoError(t, repo.UpsertAttendance(ctx, &models.AttendanceRecord{StudentID: 1, Date: date(t, d), Status: "present"}))
	}
	require.NoError(t, repo.UpsertAttendance(ctx, &models.AttendanceRecord{StudentID: 1, Date: date(t, "2025-10-01"), Status: "absent"}))

	october, err := repo.ListAttendanceRecords(ctx, 1, &models.DateRange{From: date(t, "2025-10-01"), To: date(t, "2025-10-31")})
	require.NoError(t, err)
	require.Len(t, october, 2)
	assert.Equal(t, "2025-10-01", october[0].Date.String())
	assert.Equal(t, "absent", october[0].Status)
	assert.Equal(t, "2025-10-31", october[1].Date.String())

	all, err := repo.ListAttendanceRecords(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	recent, err := repo.ListRecentAttendance(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2025-11-01", recent[0].Date.String())
	assert.Equal(t, "2025-10-31", recent[1].Date.String())
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(newTestDB(t), zap.NewNop())
	require.NoError(t, repo.CreateStudent(ctx, &models.Student{ID: 1, Name: "Asha"}))
	require.NoError(t, repo.CreateStudent(ctx, &models.Student{ID: 2, Name: "Ravi"}))

	require.NoError(t, repo.UpsertMark(ctx, &models.AcademicRecord{StudentID: 1, Subject: "Science", Score: 72}))
	require.NoError(t, repo.UpsertMark(ctx, &models.AcademicRecord{StudentID: 1, Subject: "English", Score: 88}))
	require.NoError(t, repo.UpsertMark(ctx, &models.AcademicRecord{StudentID: 2, Subject: "English", Score: 40}))
	for _, d := range []string{"2025-10-01", "2025-10-02", "2025-10-03"} {
		require.NoError(t, repo.UpsertAttendance(ctx, &models.AttendanceRecord{StudentID: 1, Date: date(t, d), Status: "present"}))
	}
	require.NoError(t, repo.UpsertAttendance(ctx, &models.AttendanceRecord{StudentID: 2, Date: date(t, "2025-10-04"), Status: "absent"}))

	snap, err := repo.Snapshot(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, snap.Marks, 2)
	assert.Equal(t, "English", snap.Marks[0].Subject)
	require.Len(t, snap.RecentAttendance, 2)
	assert.Equal(t, "2025-10-03", snap.RecentAttendance[0].Date.String())
	assert.Equal(t, "2025-10-02", snap.RecentAttendance[1].Date.String())

	// the snapshot transaction is closed, so writes still go through
	require.NoError(t, repo.UpsertMark(ctx, &models.AcademicRecord{StudentID: 1, Subject: "Maths", Score: 95}))

	empty, err := repo.Snapshot(ctx, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, empty.Marks)
	assert.Empty(t, empty.RecentAttendance)
}

func TestImportRows(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(newTestDB(t), zap.NewNop())

	score := 81.5
	d := date(t, "2025-10-08")
	summary, err := repo.ImportRows(ctx, []models.ImportRow{
		{StudentID: 3, Name: "Meera", Subject: "English", Score: &score},
		{StudentID: 3, Name: "Meera", Date: &d, Status: "P"},
		{StudentID: 4, Name: "Kabir"},
	})
	require.NoError(t, err)
	assert.Equal(t, &models.ImportSummary{Rows: 3, Students: 2, Marks: 1, Attendance: 1}, summary)

	students, err := repo.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Kabir", students[1].Name)

	// a row for an unknown student without a name rolls back the whole batch
	_, err = repo.ImportRows(ctx, []models.ImportRow{
		{StudentID: 5, Name: "New"},
		{StudentID: 6},
	})
	assert.ErrorIs(t, err, ErrStudentNotFound)
	s, err := repo.GetStudent(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestChatHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewChatHistoryRepository(newTestDB(t), zap.NewNop())

	id := int64(7)
	base := time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entry := &models.ChatHistory{
			Role:        models.RoleParent,
			UserMessage: "q",
			BotReply:    "a",
			StudentID:   &id,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Save(ctx, entry))
		assert.NotZero(t, entry.ID)
	}
	require.NoError(t, repo.Save(ctx, &models.ChatHistory{Role: models.RoleStudent, UserMessage: "hi", BotReply: "hello"}))

	entries, err := repo.ListByStudent(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
	assert.Equal(t, models.RoleParent, entries[0].Role)

	none, err := repo.ListByStudent(ctx, 8, 20)
	require.NoError(t, err)
	assert.Empty(t, none)
}
