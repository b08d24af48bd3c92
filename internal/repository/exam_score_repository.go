package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// ExamScoreRepository handles persistence for scored assessments.
type ExamScoreRepository struct {
	db *sqlx.DB
}

// NewExamScoreRepository constructs the repository.
func NewExamScoreRepository(db *sqlx.DB) *ExamScoreRepository {
	return &ExamScoreRepository{db: db}
}

// ListByStudent returns every recorded score for a student.
func (r *ExamScoreRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ExamScore, error) {
	const query = `SELECT id, student_id, section_id, score, max_score, taken_at, created_at
FROM exam_scores WHERE student_id = $1
ORDER BY taken_at ASC`
	var scores []models.ExamScore
	if err := r.db.SelectContext(ctx, &scores, query, studentID); err != nil {
		return nil, fmt.Errorf("list exam scores: %w", err)
	}
	return scores, nil
}

// Create inserts a new exam score.
func (r *ExamScoreRepository) Create(ctx context.Context, score *models.ExamScore) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_scores (id, student_id, section_id, score, max_score, taken_at, created_at)
VALUES (:id, :student_id, :section_id, :score, :max_score, :taken_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("create exam score: %w", err)
	}
	return nil
}
