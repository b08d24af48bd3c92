package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// StudentRepository handles persistence for program participants.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, user_id, program_id, full_name, cohort_year, status, created_at, updated_at`

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindByUserID returns the student record backing a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE user_id = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user: %w", err)
	}
	return &student, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, program_id, full_name, cohort_year, status, created_at, updated_at)
VALUES (:id, :user_id, :program_id, :full_name, :cohort_year, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateStatus moves a student between standings.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}

// List returns students filtered by program, cohort and status.
func (r *StudentRepository) List(ctx context.Context, programID string, cohortYear int, status *models.StudentStatus, page, pageSize int) ([]models.Student, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if programID != "" {
		where = append(where, fmt.Sprintf("program_id = $%d", len(args)+1))
		args = append(args, programID)
	}
	if cohortYear > 0 {
		where = append(where, fmt.Sprintf("cohort_year = $%d", len(args)+1))
		args = append(args, cohortYear)
	}
	if status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *status)
	}
	whereClause := strings.Join(where, " AND ")

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY full_name ASC LIMIT %d OFFSET %d`, studentColumns, whereClause, pageSize, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListActiveByProgram returns every active student in a program, used by
// roster exports.
func (r *StudentRepository) ListActiveByProgram(ctx context.Context, programID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE program_id = $1 AND status = $2 ORDER BY full_name ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, programID, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}
