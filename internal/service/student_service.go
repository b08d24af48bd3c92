package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, programID string, cohortYear int, status *models.StudentStatus, page, pageSize int) ([]models.Student, int, error)
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
}

// StudentListFilter narrows the roster listing.
type StudentListFilter struct {
	ProgramID  string
	CohortYear int
	Status     *models.StudentStatus
	Page       int
	PageSize   int
}

// UpdateStudentStatusRequest moves a student between standings.
type UpdateStudentStatusRequest struct {
	Status models.StudentStatus `json:"status" validate:"required,oneof=ACTIVE GRADUATED WITHDRAWN"`
}

// StudentService manages the program roster.
type StudentService struct {
	students  studentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(students studentStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{students: students, validator: validate, logger: logger}
}

// List returns students matching the filter plus the unpaged total.
func (s *StudentService) List(ctx context.Context, filter StudentListFilter) ([]models.Student, int, error) {
	students, total, err := s.students.List(ctx, filter.ProgramID, filter.CohortYear, filter.Status, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// UpdateStatus moves a student to a new standing.
func (s *StudentService) UpdateStatus(ctx context.Context, id string, req UpdateStudentStatusRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if err := s.students.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}
	s.logger.Info("student status changed",
		zap.String("student_id", id),
		zap.String("from", string(student.Status)),
		zap.String("to", string(req.Status)))
	student.Status = req.Status
	return student, nil
}
