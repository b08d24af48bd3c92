package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// WeeklyAttendanceRepository handles persistence for supplemental weekly
// class attendance.
type WeeklyAttendanceRepository struct {
	db *sqlx.DB
}

// NewWeeklyAttendanceRepository constructs the repository.
func NewWeeklyAttendanceRepository(db *sqlx.DB) *WeeklyAttendanceRepository {
	return &WeeklyAttendanceRepository{db: db}
}

// Statuses returns the raw status strings recorded across all weeks for a
// student.
func (r *WeeklyAttendanceRepository) Statuses(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT status FROM weekly_attendance WHERE student_id = $1`
	var statuses []string
	if err := r.db.SelectContext(ctx, &statuses, query, studentID); err != nil {
		return nil, fmt.Errorf("weekly attendance statuses: %w", err)
	}
	return statuses, nil
}

// ListByStudent returns the weekly history for a student, newest week first.
func (r *WeeklyAttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.WeeklyAttendance, error) {
	const query = `SELECT id, student_id, year, week, status, notes, created_at, updated_at
FROM weekly_attendance WHERE student_id = $1
ORDER BY year DESC, week DESC`
	var rows []models.WeeklyAttendance
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list weekly attendance: %w", err)
	}
	return rows, nil
}

// Mark inserts or updates the record for one student-week. A later mark for
// the same week replaces the earlier one.
func (r *WeeklyAttendanceRepository) Mark(ctx context.Context, record *models.WeeklyAttendance) (*models.WeeklyAttendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO weekly_attendance (id, student_id, year, week, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (student_id, year, week)
DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, year, week, status, notes, created_at, updated_at`
	var stored models.WeeklyAttendance
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.StudentID, record.Year, record.Week, record.Status, record.Notes, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("mark weekly attendance: %w", err)
	}
	return &stored, nil
}
