package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) MarkRunning(ctx context.Context, id string) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ReportStatusRunning
	return nil
}

func (r *reportRepoStub) MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ReportStatusCompleted
	job.FilePath = &filePath
	job.CompletedAt = &completedAt
	return nil
}

func (r *reportRepoStub) MarkFailed(ctx context.Context, id, errText string, completedAt time.Time) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.ReportStatusFailed
	job.ErrorText = &errText
	job.CompletedAt = &completedAt
	return nil
}

func (r *reportRepoStub) ListByRequester(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	var owned []models.ReportJob
	for _, job := range r.jobs {
		if job.RequestedBy == userID {
			owned = append(owned, *job)
		}
	}
	return owned, nil
}

type studentListerStub struct {
	students []models.Student
	err      error
}

func (s studentListerStub) ListActiveByProgram(ctx context.Context, programID string) ([]models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.students, nil
}

type evaluatorStub struct {
	eligible map[string]bool
	err      error
}

func (e evaluatorStub) Evaluate(ctx context.Context, studentID string) (*models.GraduationDecision, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &models.GraduationDecision{StudentID: studentID, CanGraduate: e.eligible[studentID]}, nil
}

type queueStub struct {
	tasks []jobs.Task
	err   error
}

func (q *queueStub) Submit(task jobs.Task) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func newReportServiceForTest(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t)
	svc := NewReportService(repo, studentListerStub{}, queue, exportSvc, zap.NewNop())
	return svc, repo, queue, exportSvc
}

func TestReportServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)

	job, err := svc.CreateJob(context.Background(), CreateReportRequest{ProgramID: "p1", Format: "csv"}, "admin1")
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, models.ReportStatusPending, job.Status)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, job.ID, queue.tasks[0].JobID)
	assert.Contains(t, repo.jobs, job.ID)
}

func TestReportServiceCreateJobRejectsFormat(t *testing.T) {
	svc, _, queue, _ := newReportServiceForTest(t)

	_, err := svc.CreateJob(context.Background(), CreateReportRequest{ProgramID: "p1", Format: "xlsx"}, "admin1")
	require.Error(t, err)
	assert.Empty(t, queue.tasks)
}

func TestReportServiceCreateJobSubmitFailureMarksFailed(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	queue.err = errors.New("queue full")

	_, err := svc.CreateJob(context.Background(), CreateReportRequest{ProgramID: "p1", Format: "csv"}, "admin1")
	require.Error(t, err)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceGetStatusEnforcesOwnership(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	repo.jobs["job-1"] = &models.ReportJob{ID: "job-1", RequestedBy: "mentor1", Status: models.ReportStatusRunning}

	_, err := svc.GetStatus(context.Background(), "job-1", "mentor2", models.RoleMentor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	job, err := svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
}

func TestReportServiceSignDownloadRequiresCompletion(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	repo.jobs["job-1"] = &models.ReportJob{ID: "job-1", RequestedBy: "admin1", Status: models.ReportStatusRunning}

	_, _, err := svc.SignDownload(context.Background(), "job-1", "admin1", models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newReportServiceForTest(t)
	job := &models.ReportJob{ID: "job-dl", ProgramID: "p1", Format: models.ReportFormatCSV, RequestedBy: "admin1"}
	repo.jobs[job.ID] = job

	result, err := exportSvc.Render(job, sampleRoster())
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, repo.MarkCompleted(context.Background(), job.ID, result.RelativePath, now))

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	assert.Equal(t, models.ReportFormatCSV, download.Format)
}

func TestReportServiceResolveDownloadRejectsBadToken(t *testing.T) {
	svc, _, _, _ := newReportServiceForTest(t)

	_, err := svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = &models.ReportJob{ID: "job-1", ProgramID: "p1", Format: models.ReportFormatCSV, Status: models.ReportStatusPending, RequestedBy: "admin1"}
	exportSvc, _ := newExportServiceForTest(t)
	students := studentListerStub{students: []models.Student{
		{ID: "s1", FullName: "Alpha Student", CohortYear: 2025},
		{ID: "s2", FullName: "Beta Student", CohortYear: 2025},
	}}
	evaluator := evaluatorStub{eligible: map[string]bool{"s1": true}}
	worker := NewReportWorker(repo, students, evaluator, exportSvc, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Task{JobID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusCompleted, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].FilePath)
}

func TestReportWorkerHandleFailureMarksFailed(t *testing.T) {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = &models.ReportJob{ID: "job-1", ProgramID: "p1", Format: models.ReportFormatCSV, Status: models.ReportStatusPending, RequestedBy: "admin1"}
	exportSvc, _ := newExportServiceForTest(t)
	worker := NewReportWorker(repo, studentListerStub{err: errors.New("db down")}, evaluatorStub{}, exportSvc, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Task{JobID: "job-1"})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].ErrorText)
}
