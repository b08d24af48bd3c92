package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/pkg/codegen"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type registrationUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type registrationStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type registrationCodeRedeemer interface {
	Redeem(ctx context.Context, value string, expected models.CodeType) (*models.AccessCode, error)
	Refund(ctx context.Context, id string) error
}

type registrationWeeklyRepository interface {
	Mark(ctx context.Context, record *models.WeeklyAttendance) (*models.WeeklyAttendance, error)
}

// RegistrationService drives invite-gated onboarding and weekly-code
// check-ins.
type RegistrationService struct {
	users      registrationUserRepository
	students   registrationStudentRepository
	codes      registrationCodeRedeemer
	weekly     registrationWeeklyRepository
	validator  *validator.Validate
	logger     *zap.Logger
	passwordLn int
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(users registrationUserRepository, students registrationStudentRepository, codes registrationCodeRedeemer, weekly registrationWeeklyRepository, validate *validator.Validate, logger *zap.Logger, tempPasswordLength int) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if tempPasswordLength < 8 {
		tempPasswordLength = 12
	}
	return &RegistrationService{
		users:      users,
		students:   students,
		codes:      codes,
		weekly:     weekly,
		validator:  validate,
		logger:     logger,
		passwordLn: tempPasswordLength,
	}
}

// Register redeems an invite code and provisions a student account with a
// one-time temporary password. A failed code never creates anything; when
// account creation fails after redemption the consumed use is refunded so
// the invite stays usable.
func (s *RegistrationService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	code, err := s.codes.Redeem(ctx, req.InviteCode, models.CodeTypeInvite)
	if err != nil {
		return nil, err
	}

	tempPassword, err := codegen.TemporaryPassword(s.passwordLn)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate temporary password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
		MustChangePW: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.refundCodeUse(ctx, code.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	student := &models.Student{
		UserID:     user.ID,
		ProgramID:  req.ProgramID,
		FullName:   req.FullName,
		CohortYear: req.CohortYear,
		Status:     models.StudentStatusActive,
	}
	if err := s.students.Create(ctx, student); err != nil {
		s.refundCodeUse(ctx, code.ID)
		s.logger.Warn("user created without student profile", zap.String("user_id", user.ID))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionRegistration,
		Resource:   "registration",
		ResourceID: &code.ID,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record registration audit log", zap.Error(err))
	}

	s.logger.Info("student registered",
		zap.String("user_id", user.ID),
		zap.String("student_id", student.ID),
		zap.String("code_id", code.ID))

	return &models.RegisterResponse{
		UserID:            user.ID,
		StudentID:         student.ID,
		Email:             user.Email,
		TemporaryPassword: tempPassword,
	}, nil
}

func (s *RegistrationService) refundCodeUse(ctx context.Context, codeID string) {
	if err := s.codes.Refund(ctx, codeID); err != nil {
		s.logger.Warn("failed to refund invite code use", zap.String("code_id", codeID), zap.Error(err))
	}
}

// WeeklyCheckIn marks the student's week PRESENT through a weekly code.
// When the code is rejected the week is recorded as REJECTED so the failed
// attempt counts against the student, then the rejection is surfaced.
func (s *RegistrationService) WeeklyCheckIn(ctx context.Context, userID string, req models.WeeklyCheckInRequest) (*models.WeeklyAttendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student profile for user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if _, err := s.codes.Redeem(ctx, req.Code, models.CodeTypeWeekly); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrCodeRejected.Code {
			if _, markErr := s.weekly.Mark(ctx, &models.WeeklyAttendance{
				StudentID: student.ID,
				Year:      req.Year,
				Week:      req.Week,
				Status:    models.WeeklyStatusRejected,
			}); markErr != nil {
				s.logger.Warn("failed to record rejected check-in", zap.Error(markErr))
			}
		}
		return nil, err
	}

	record, err := s.weekly.Mark(ctx, &models.WeeklyAttendance{
		StudentID: student.ID,
		Year:      req.Year,
		Week:      req.Week,
		Status:    models.WeeklyStatusPresent,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark week")
	}
	return record, nil
}
