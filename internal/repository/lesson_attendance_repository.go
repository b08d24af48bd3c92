package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// LessonAttendanceRepository handles persistence for per-lesson attendance.
type LessonAttendanceRepository struct {
	db *sqlx.DB
}

// NewLessonAttendanceRepository constructs the repository.
func NewLessonAttendanceRepository(db *sqlx.DB) *LessonAttendanceRepository {
	return &LessonAttendanceRepository{db: db}
}

// Statuses returns the raw status strings recorded for a student across
// regular lessons. Exam-day lessons are excluded at the query level so they
// never reach the attendance math.
func (r *LessonAttendanceRepository) Statuses(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT la.status
FROM lesson_attendance la
JOIN lessons l ON l.id = la.lesson_id
WHERE la.student_id = $1 AND NOT l.is_exam_day`
	var statuses []string
	if err := r.db.SelectContext(ctx, &statuses, query, studentID); err != nil {
		return nil, fmt.Errorf("lesson attendance statuses: %w", err)
	}
	return statuses, nil
}

// RemainingLessons counts scheduled regular lessons after the given instant.
func (r *LessonAttendanceRepository) RemainingLessons(ctx context.Context, programID string, after time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons WHERE program_id = $1 AND NOT is_exam_day AND date > $2`
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, programID, after); err != nil {
		return 0, fmt.Errorf("remaining lessons: %w", err)
	}
	return remaining, nil
}

// List returns attendance rows matching the provided filter.
func (r *LessonAttendanceRepository) List(ctx context.Context, filter models.LessonAttendanceFilter) ([]models.LessonAttendance, int, error) {
	base := `FROM lesson_attendance la
JOIN lessons l ON l.id = la.lesson_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("la.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ProgramID != "" {
		where = append(where, fmt.Sprintf("l.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("la.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("l.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("l.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT la.id, la.student_id, la.lesson_id, la.status, la.notes, la.created_at, la.updated_at
        %s WHERE %s
        ORDER BY l.date DESC
        LIMIT %d OFFSET %d`, base, whereClause, size, offset)

	var rows []models.LessonAttendance
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lesson attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lesson attendance: %w", err)
	}
	return rows, total, nil
}

// Upsert inserts or updates the attendance record for a student and lesson.
// Re-recording the same lesson replaces the previous status.
func (r *LessonAttendanceRepository) Upsert(ctx context.Context, record *models.LessonAttendance) (*models.LessonAttendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO lesson_attendance (id, student_id, lesson_id, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, lesson_id)
DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, lesson_id, status, notes, created_at, updated_at`
	var stored models.LessonAttendance
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.StudentID, record.LessonID, record.Status, record.Notes, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert lesson attendance: %w", err)
	}
	return &stored, nil
}

// FindLesson returns a lesson by identifier.
func (r *LessonAttendanceRepository) FindLesson(ctx context.Context, id string) (*models.Lesson, error) {
	const query = `SELECT id, program_id, title, date, is_exam_day, created_at FROM lessons WHERE id = $1 LIMIT 1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// CreateLesson inserts a scheduled lesson.
func (r *LessonAttendanceRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lessons (id, program_id, title, date, is_exam_day, created_at) VALUES (:id, :program_id, :title, :date, :is_exam_day, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}
