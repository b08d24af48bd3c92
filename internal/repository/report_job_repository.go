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

// ReportJobRepository handles persistence for asynchronous roster exports.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository constructs the repository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

const reportJobColumns = `id, program_id, format, status, file_path, error_text, requested_by, created_at, completed_at`

// Create inserts a pending job.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusPending
	}
	const query = `INSERT INTO report_jobs (id, program_id, format, status, file_path, error_text, requested_by, created_at, completed_at)
VALUES (:id, :program_id, :format, :status, :file_path, :error_text, :requested_by, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns a job by identifier.
func (r *ReportJobRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_jobs WHERE id = $1 LIMIT 1`, reportJobColumns)
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report job: %w", err)
	}
	return &job, nil
}

// MarkRunning transitions a job to RUNNING.
func (r *ReportJobRepository) MarkRunning(ctx context.Context, id string) error {
	const query = `UPDATE report_jobs SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusRunning); err != nil {
		return fmt.Errorf("mark report job running: %w", err)
	}
	return nil
}

// MarkCompleted records the output path and completion time.
func (r *ReportJobRepository) MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, file_path = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusCompleted, filePath, completedAt); err != nil {
		return fmt.Errorf("mark report job completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ReportJobRepository) MarkFailed(ctx context.Context, id, errText string, completedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = $2, error_text = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusFailed, errText, completedAt); err != nil {
		return fmt.Errorf("mark report job failed: %w", err)
	}
	return nil
}

// ListByRequester returns jobs created by a user, newest first.
func (r *ReportJobRepository) ListByRequester(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM report_jobs WHERE requested_by = $1 ORDER BY created_at DESC LIMIT %d`, reportJobColumns, limit)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, userID); err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	return jobs, nil
}
