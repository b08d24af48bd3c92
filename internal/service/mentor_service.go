package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type mentorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Mentor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Mentor, error)
	ActiveAssignment(ctx context.Context, studentID string) (*models.MentorAssignment, error)
	Assign(ctx context.Context, mentorID, studentID string, startedAt time.Time) (*models.MentorAssignment, error)
	EndAssignment(ctx context.Context, id string, endedAt time.Time) error
	ListAssignments(ctx context.Context, mentorID string) ([]models.MentorAssignmentDetail, error)
}

type mentorStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AssignMentorRequest links one student to one mentor.
type AssignMentorRequest struct {
	MentorID  string `json:"mentor_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// MentorService manages mentor-student assignments.
type MentorService struct {
	mentors   mentorRepository
	students  mentorStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMentorService constructs a MentorService instance.
func NewMentorService(mentors mentorRepository, students mentorStudentRepository, validate *validator.Validate, logger *zap.Logger) *MentorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MentorService{mentors: mentors, students: students, validator: validate, logger: logger}
}

// Assign creates an active assignment, ending any previous one for the
// student.
func (s *MentorService) Assign(ctx context.Context, req AssignMentorRequest) (*models.MentorAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	mentor, err := s.mentors.FindByID(ctx, req.MentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}
	if !mentor.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "mentor is inactive")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	assignment, err := s.mentors.Assign(ctx, req.MentorID, req.StudentID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign mentor")
	}
	s.logger.Info("mentor assigned",
		zap.String("mentor_id", req.MentorID),
		zap.String("student_id", req.StudentID))
	return assignment, nil
}

// EndAssignment closes an active assignment.
func (s *MentorService) EndAssignment(ctx context.Context, id string) error {
	if err := s.mentors.EndAssignment(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "active assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end assignment")
	}
	return nil
}

// Assignments returns the active assignments for a mentor.
func (s *MentorService) Assignments(ctx context.Context, mentorID string) ([]models.MentorAssignmentDetail, error) {
	rows, err := s.mentors.ListAssignments(ctx, mentorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return rows, nil
}

// MentorForStudent returns the student's current mentor with the backing
// assignment, or NotFound when the student has no active assignment.
func (s *MentorService) MentorForStudent(ctx context.Context, studentID string) (*models.StudentMentorView, error) {
	assignment, err := s.mentors.ActiveAssignment(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no active mentor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	mentor, err := s.mentors.FindByID(ctx, assignment.MentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}
	return &models.StudentMentorView{
		Assignment: *assignment,
		MentorName: mentor.FullName,
	}, nil
}

// AssignmentsForUser resolves the mentor behind a user account and returns
// that mentor's active assignments.
func (s *MentorService) AssignmentsForUser(ctx context.Context, userID string) ([]models.MentorAssignmentDetail, error) {
	mentor, err := s.mentors.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no mentor profile for user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
	}
	return s.Assignments(ctx, mentor.ID)
}
