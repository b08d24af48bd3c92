package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	"github.com/noah-isme/mentorship-api/pkg/codegen"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type accessCodeRepository interface {
	FindByCode(ctx context.Context, code string) (*models.AccessCode, error)
	Create(ctx context.Context, code *models.AccessCode) error
	List(ctx context.Context, codeType *models.CodeType, page, pageSize int) ([]models.AccessCode, int, error)
	Revoke(ctx context.Context, id string) error
	Redeem(ctx context.Context, code string, now time.Time) (*models.AccessCode, models.CodeValidationResult, error)
	ReleaseUse(ctx context.Context, id string) error
}

type accessCodeAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// IssueCodeRequest is the payload for minting a new access code.
type IssueCodeRequest struct {
	Type      models.CodeType `json:"code_type" validate:"required"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	MaxUses   int             `json:"max_uses" validate:"gte=0"`
}

// CodeGenConfig tunes code generation per code type.
type CodeGenConfig struct {
	InvitePrefix string
	InviteLength int
	WeeklyPrefix string
	WeeklyLength int
	MaxAttempts  int
}

// AccessCodeService manages the lifecycle of invite and weekly codes.
type AccessCodeService struct {
	repo      accessCodeRepository
	audit     accessCodeAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    CodeGenConfig
}

// NewAccessCodeService constructs an AccessCodeService instance.
func NewAccessCodeService(repo accessCodeRepository, audit accessCodeAuditRepository, validate *validator.Validate, logger *zap.Logger, config CodeGenConfig) *AccessCodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	return &AccessCodeService{repo: repo, audit: audit, validator: validate, logger: logger, config: config}
}

// Issue mints a new code, regenerating on value collisions up to the
// configured attempt budget.
func (s *AccessCodeService) Issue(ctx context.Context, req IssueCodeRequest, issuedBy string) (*models.AccessCode, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid issue payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown code type")
	}

	prefix, length := s.config.InvitePrefix, s.config.InviteLength
	if req.Type == models.CodeTypeWeekly {
		prefix, length = s.config.WeeklyPrefix, s.config.WeeklyLength
	}

	var lastErr error
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		value, err := codegen.Code(prefix, length)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
		}

		code := &models.AccessCode{
			Code:      value,
			Type:      req.Type,
			IsActive:  true,
			ExpiresAt: req.ExpiresAt,
			MaxUses:   req.MaxUses,
			CreatedBy: &issuedBy,
		}
		if err := s.repo.Create(ctx, code); err != nil {
			// A collision only means the random value was taken; retry
			// with a fresh one.
			lastErr = err
			if repository.IsDuplicateCode(err) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist code")
		}

		s.recordAudit(ctx, issuedBy, models.AuditActionCodeIssued, code.ID)
		return code, nil
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "exhausted code generation attempts")
}

// Validate checks a code without consuming a use.
func (s *AccessCodeService) Validate(ctx context.Context, value string) (models.CodeValidationResult, error) {
	code, err := s.repo.FindByCode(ctx, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CodeValidationResult{}, appErrors.Clone(appErrors.ErrNotFound, "code not found")
		}
		return models.CodeValidationResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load code")
	}
	return code.Validate(time.Now().UTC()), nil
}

// Redeem validates and consumes one use of a code of the expected type.
func (s *AccessCodeService) Redeem(ctx context.Context, value string, expected models.CodeType) (*models.AccessCode, error) {
	code, result, err := s.repo.Redeem(ctx, value, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "code not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to redeem code")
	}
	if !result.Valid {
		return nil, appErrors.Clone(appErrors.ErrCodeRejected, result.Reason)
	}
	if code.Type != expected {
		return nil, appErrors.Clone(appErrors.ErrCodeRejected, "wrong code type")
	}
	return code, nil
}

// Refund returns a consumed use to a code. Callers invoke it when the action
// the redemption gated could not be completed, so the holder can retry.
func (s *AccessCodeService) Refund(ctx context.Context, id string) error {
	if err := s.repo.ReleaseUse(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "code not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refund code use")
	}
	return nil
}

// List returns issued codes, optionally filtered by type.
func (s *AccessCodeService) List(ctx context.Context, codeType *models.CodeType, page, pageSize int) ([]models.AccessCode, int, error) {
	codes, total, err := s.repo.List(ctx, codeType, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list codes")
	}
	return codes, total, nil
}

// Revoke permanently deactivates a code.
func (s *AccessCodeService) Revoke(ctx context.Context, id, revokedBy string) error {
	if err := s.repo.Revoke(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "code not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke code")
	}
	s.recordAudit(ctx, revokedBy, models.AuditActionCodeRevoked, id)
	return nil
}

func (s *AccessCodeService) recordAudit(ctx context.Context, userID string, action models.AuditAction, resourceID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "access_code",
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record code audit log", zap.Error(err))
	}
}
