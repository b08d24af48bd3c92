package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// MentorRepository handles persistence for mentors and their student
// assignments.
type MentorRepository struct {
	db *sqlx.DB
}

// NewMentorRepository constructs the repository.
func NewMentorRepository(db *sqlx.DB) *MentorRepository {
	return &MentorRepository{db: db}
}

// FindByID returns a mentor by identifier.
func (r *MentorRepository) FindByID(ctx context.Context, id string) (*models.Mentor, error) {
	const query = `SELECT id, user_id, full_name, active, created_at, updated_at FROM mentors WHERE id = $1 LIMIT 1`
	var mentor models.Mentor
	if err := r.db.GetContext(ctx, &mentor, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mentor: %w", err)
	}
	return &mentor, nil
}

// FindByUserID returns the mentor record backing a user account.
func (r *MentorRepository) FindByUserID(ctx context.Context, userID string) (*models.Mentor, error) {
	const query = `SELECT id, user_id, full_name, active, created_at, updated_at FROM mentors WHERE user_id = $1 LIMIT 1`
	var mentor models.Mentor
	if err := r.db.GetContext(ctx, &mentor, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mentor by user: %w", err)
	}
	return &mentor, nil
}

// ActiveAssignment returns the current assignment for a student, if any.
func (r *MentorRepository) ActiveAssignment(ctx context.Context, studentID string) (*models.MentorAssignment, error) {
	const query = `SELECT id, mentor_id, student_id, started_at, ended_at, created_at
FROM mentor_assignments WHERE student_id = $1 AND ended_at IS NULL LIMIT 1`
	var assignment models.MentorAssignment
	if err := r.db.GetContext(ctx, &assignment, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("active assignment: %w", err)
	}
	return &assignment, nil
}

// Assign links a student to a mentor. An existing active assignment is ended
// in the same transaction so the one-active-assignment rule cannot be broken
// by interleaved writers.
func (r *MentorRepository) Assign(ctx context.Context, mentorID, studentID string, startedAt time.Time) (*models.MentorAssignment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assign: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const endCurrent = `UPDATE mentor_assignments SET ended_at = $2 WHERE student_id = $1 AND ended_at IS NULL`
	if _, err := tx.ExecContext(ctx, endCurrent, studentID, startedAt); err != nil {
		return nil, fmt.Errorf("end current assignment: %w", err)
	}

	assignment := models.MentorAssignment{
		ID:        uuid.NewString(),
		MentorID:  mentorID,
		StudentID: studentID,
		StartedAt: startedAt,
		CreatedAt: time.Now().UTC(),
	}
	const insert = `INSERT INTO mentor_assignments (id, mentor_id, student_id, started_at, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insert, assignment.ID, assignment.MentorID, assignment.StudentID, assignment.StartedAt, assignment.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assign: %w", err)
	}
	committed = true
	return &assignment, nil
}

// EndAssignment closes an assignment at the given instant.
func (r *MentorRepository) EndAssignment(ctx context.Context, id string, endedAt time.Time) error {
	const query = `UPDATE mentor_assignments SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, endedAt)
	if err != nil {
		return fmt.Errorf("end assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end assignment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAssignments returns a mentor's active assignments joined with student
// metadata.
func (r *MentorRepository) ListAssignments(ctx context.Context, mentorID string) ([]models.MentorAssignmentDetail, error) {
	const query = `SELECT ma.id, ma.mentor_id, ma.student_id, ma.started_at, ma.ended_at, ma.created_at,
        s.full_name AS student_name, s.status AS student_status
FROM mentor_assignments ma
JOIN students s ON s.id = ma.student_id
WHERE ma.mentor_id = $1 AND ma.ended_at IS NULL
ORDER BY s.full_name ASC`
	var rows []models.MentorAssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, mentorID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}
