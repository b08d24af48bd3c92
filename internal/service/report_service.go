package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, errText string, completedAt time.Time) error
	ListByRequester(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
}

type reportStudentLister interface {
	ListActiveByProgram(ctx context.Context, programID string) ([]models.Student, error)
}

type reportEligibilityEvaluator interface {
	Evaluate(ctx context.Context, studentID string) (*models.GraduationDecision, error)
}

type jobDispatcher interface {
	Submit(task jobs.Task) error
}

// CreateReportRequest queues a graduation roster export.
type CreateReportRequest struct {
	ProgramID string `json:"program_id" validate:"required"`
	Format    string `json:"format" validate:"required"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService orchestrates the roster export job lifecycle.
type ReportService struct {
	repo     reportJobStore
	students reportStudentLister
	queue    jobDispatcher
	exporter *ExportService
	logger   *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, students reportStudentLister, queue jobDispatcher, exporter *ExportService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:     repo,
		students: students,
		queue:    queue,
		exporter: exporter,
		logger:   logger,
	}
}

// CreateJob persists a pending job and enqueues it for processing.
func (s *ReportService) CreateJob(ctx context.Context, req CreateReportRequest, requestedBy string) (*models.ReportJob, error) {
	format := models.ReportFormat(req.Format)
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	if req.ProgramID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program_id is required")
	}

	job := &models.ReportJob{
		ProgramID:   req.ProgramID,
		Format:      format,
		Status:      models.ReportStatusPending,
		RequestedBy: requestedBy,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Submit(jobs.Task{JobID: job.ID, Kind: "graduation_roster"}); err != nil {
		now := time.Now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue", now); markErr != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus exposes job metadata, enforcing ownership for non-admins.
func (s *ReportService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if role != models.RoleAdmin && job.RequestedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your report")
	}
	return job, nil
}

// SignDownload returns a short-lived download URL for a completed job.
func (s *ReportService) SignDownload(ctx context.Context, id, actorID string, role models.UserRole) (string, time.Time, error) {
	job, err := s.GetStatus(ctx, id, actorID, role)
	if err != nil {
		return "", time.Time{}, err
	}
	if job.Status != models.ReportStatusCompleted || job.FilePath == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "report not ready")
	}
	token, expiresAt, err := s.exporter.SignDownload(job.ID, *job.FilePath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return s.exporter.DownloadURL(token), expiresAt, nil
}

// ResolveDownload validates a token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	claims, err := s.exporter.VerifyToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, claims.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportStatusCompleted || job.FilePath == nil || *job.FilePath != claims.File {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(claims.File)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(claims.File),
		Format:    job.Format,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// ListJobs returns the caller's recent jobs.
func (s *ReportService) ListJobs(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	jobsList, err := s.repo.ListByRequester(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	return jobsList, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := s.exporter.Cleanup(ttl); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				} else if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

// ReportWorker bridges queue jobs to roster generation.
type ReportWorker struct {
	repo        reportJobStore
	students    reportStudentLister
	eligibility reportEligibilityEvaluator
	exporter    *ExportService
	logger      *zap.Logger
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, students reportStudentLister, eligibility reportEligibilityEvaluator, exporter *ExportService, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{
		repo:        repo,
		students:    students,
		eligibility: eligibility,
		exporter:    exporter,
		logger:      logger,
	}
}

// Handle processes one queued roster export.
func (w *ReportWorker) Handle(ctx context.Context, task jobs.Task) error {
	record, err := w.repo.FindByID(ctx, task.JobID)
	if err != nil {
		return err
	}
	if err := w.repo.MarkRunning(ctx, record.ID); err != nil {
		return err
	}

	roster, err := w.buildRoster(ctx, record.ProgramID)
	if err != nil {
		w.fail(ctx, record.ID, err)
		return err
	}
	result, err := w.exporter.Render(record, roster)
	if err != nil {
		w.fail(ctx, record.ID, err)
		return err
	}
	if err := w.repo.MarkCompleted(ctx, record.ID, result.RelativePath, time.Now().UTC()); err != nil {
		w.logger.Warn("failed to mark job completed", zap.String("job_id", record.ID), zap.Error(err))
		return err
	}
	return nil
}

func (w *ReportWorker) buildRoster(ctx context.Context, programID string) ([]models.GraduationRosterRow, error) {
	students, err := w.students.ListActiveByProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	roster := make([]models.GraduationRosterRow, 0, len(students))
	for _, student := range students {
		decision, err := w.eligibility.Evaluate(ctx, student.ID)
		if err != nil {
			return nil, err
		}
		roster = append(roster, models.GraduationRosterRow{
			StudentID:   student.ID,
			StudentName: student.FullName,
			CohortYear:  student.CohortYear,
			Eligible:    decision.CanGraduate,
		})
	}
	return roster, nil
}

func (w *ReportWorker) fail(ctx context.Context, jobID string, cause error) {
	if err := w.repo.MarkFailed(ctx, jobID, cause.Error(), time.Now().UTC()); err != nil {
		w.logger.Warn("failed to mark job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}
