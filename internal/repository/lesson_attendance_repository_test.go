package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentorship-api/internal/models"
)

func TestStatusesExcludesExamDays(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"status"}).
		AddRow("PRESENT").
		AddRow("LATE").
		AddRow("EXCUSED")
	mock.ExpectQuery("SELECT la.status\\s+FROM lesson_attendance la\\s+JOIN lessons l ON l.id = la.lesson_id\\s+WHERE la.student_id = \\$1 AND NOT l.is_exam_day").
		WithArgs("s1").
		WillReturnRows(rows)

	statuses, err := repo.Statuses(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"PRESENT", "LATE", "EXCUSED"}, statuses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemainingLessons(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE program_id = $1 AND NOT is_exam_day AND date > $2")).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	remaining, err := repo.RemainingLessons(context.Background(), "p1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 12, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertReplacesStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonAttendanceRepository(db)

	now := time.Now()
	returned := sqlmock.NewRows([]string{"id", "student_id", "lesson_id", "status", "notes", "created_at", "updated_at"}).
		AddRow("att1", "s1", "l1", "LATE", nil, now, now)
	mock.ExpectQuery("INSERT INTO lesson_attendance .*ON CONFLICT \\(student_id, lesson_id\\)").
		WillReturnRows(returned)

	stored, err := repo.Upsert(context.Background(), &models.LessonAttendance{
		StudentID: "s1",
		LessonID:  "l1",
		Status:    models.AttendanceStatusLate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
