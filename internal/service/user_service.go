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

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// UpdateUserRequest carries the mutable account fields an administrator may
// change.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required,min=2,max=120"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN MENTOR STUDENT"`
	Active   bool            `json:"active"`
}

// UserService handles administrative account management.
type UserService struct {
	users     userStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users userStore, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, validator: validate, logger: logger}
}

// List returns accounts matching the filter plus the unpaged total.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Update applies administrative changes to an account.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.FullName = req.FullName
	user.Role = req.Role
	user.Active = req.Active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	s.logger.Info("user updated",
		zap.String("user_id", id),
		zap.String("role", string(req.Role)),
		zap.Bool("active", req.Active))
	return user, nil
}

// Deactivate soft-deletes an account. Administrators cannot deactivate
// themselves to avoid locking out the last admin.
func (s *UserService) Deactivate(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot deactivate own account")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	s.logger.Info("user deactivated", zap.String("user_id", id), zap.String("actor_id", actorID))
	return nil
}
