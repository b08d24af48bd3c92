package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type mockCodeRepo struct {
	byCode        map[string]*models.AccessCode
	created       []*models.AccessCode
	createErrs    []error
	redeemCode    *models.AccessCode
	redeemResult  models.CodeValidationResult
	redeemErr     error
	revokeErr     error
	revokedIDs    []string
	listCodes     []models.AccessCode
	redeemedCodes []string
	releasedIDs   []string
	releaseErr    error
}

func (m *mockCodeRepo) FindByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	ac, ok := m.byCode[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ac, nil
}

func (m *mockCodeRepo) Create(ctx context.Context, code *models.AccessCode) error {
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	code.ID = "ac1"
	m.created = append(m.created, code)
	return nil
}

func (m *mockCodeRepo) List(ctx context.Context, codeType *models.CodeType, page, pageSize int) ([]models.AccessCode, int, error) {
	return m.listCodes, len(m.listCodes), nil
}

func (m *mockCodeRepo) Revoke(ctx context.Context, id string) error {
	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.revokedIDs = append(m.revokedIDs, id)
	return nil
}

func (m *mockCodeRepo) Redeem(ctx context.Context, code string, now time.Time) (*models.AccessCode, models.CodeValidationResult, error) {
	m.redeemedCodes = append(m.redeemedCodes, code)
	if m.redeemErr != nil {
		return nil, models.CodeValidationResult{}, m.redeemErr
	}
	return m.redeemCode, m.redeemResult, nil
}

func (m *mockCodeRepo) ReleaseUse(ctx context.Context, id string) error {
	if m.releaseErr != nil {
		return m.releaseErr
	}
	m.releasedIDs = append(m.releasedIDs, id)
	return nil
}

type mockCodeAudit struct {
	logs []*models.AuditLog
}

func (m *mockCodeAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newCodeService(repo *mockCodeRepo, audit *mockCodeAudit) *AccessCodeService {
	return NewAccessCodeService(repo, audit, validator.New(), zap.NewNop(), CodeGenConfig{
		InvitePrefix: "MP-",
		InviteLength: 8,
		WeeklyPrefix: "WK-",
		WeeklyLength: 6,
		MaxAttempts:  3,
	})
}

func TestIssueInviteCode(t *testing.T) {
	repo := &mockCodeRepo{}
	audit := &mockCodeAudit{}
	svc := newCodeService(repo, audit)

	code, err := svc.Issue(context.Background(), IssueCodeRequest{Type: models.CodeTypeInvite, MaxUses: 1}, "admin1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code.Code, "MP-"))
	assert.Len(t, code.Code, 11)
	assert.True(t, code.IsActive)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCodeIssued, audit.logs[0].Action)
}

func TestIssueRetriesOnCollision(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "access_codes_code_key"}
	repo := &mockCodeRepo{createErrs: []error{dup, dup}}
	svc := newCodeService(repo, &mockCodeAudit{})

	code, err := svc.Issue(context.Background(), IssueCodeRequest{Type: models.CodeTypeWeekly}, "admin1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code.Code, "WK-"))
	assert.Len(t, repo.created, 1)
}

func TestIssueExhaustsAttempts(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "access_codes_code_key"}
	repo := &mockCodeRepo{createErrs: []error{dup, dup, dup}}
	svc := newCodeService(repo, &mockCodeAudit{})

	_, err := svc.Issue(context.Background(), IssueCodeRequest{Type: models.CodeTypeInvite}, "admin1")
	assert.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestValidateDoesNotConsume(t *testing.T) {
	repo := &mockCodeRepo{byCode: map[string]*models.AccessCode{
		"MP-ABCD2345": {Code: "MP-ABCD2345", IsActive: true, MaxUses: 2, UsageCount: 1},
	}}
	svc := newCodeService(repo, &mockCodeAudit{})

	result, err := svc.Validate(context.Background(), "MP-ABCD2345")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, repo.byCode["MP-ABCD2345"].UsageCount)
	assert.Empty(t, repo.redeemedCodes)
}

func TestValidateUnknownCode(t *testing.T) {
	svc := newCodeService(&mockCodeRepo{}, &mockCodeAudit{})
	_, err := svc.Validate(context.Background(), "MP-MISSING2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRedeemRejectedCode(t *testing.T) {
	repo := &mockCodeRepo{
		redeemCode:   &models.AccessCode{Code: "MP-EXPIRED9", Type: models.CodeTypeInvite},
		redeemResult: models.CodeValidationResult{Reason: models.CodeReasonExpired},
	}
	svc := newCodeService(repo, &mockCodeAudit{})

	_, err := svc.Redeem(context.Background(), "MP-EXPIRED9", models.CodeTypeInvite)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCodeRejected.Code, appErr.Code)
	assert.Equal(t, models.CodeReasonExpired, appErr.Message)
}

func TestRedeemWrongType(t *testing.T) {
	repo := &mockCodeRepo{
		redeemCode:   &models.AccessCode{Code: "WK-ABC234", Type: models.CodeTypeWeekly},
		redeemResult: models.CodeValidationResult{Valid: true},
	}
	svc := newCodeService(repo, &mockCodeAudit{})

	_, err := svc.Redeem(context.Background(), "WK-ABC234", models.CodeTypeInvite)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeRejected.Code, appErrors.FromError(err).Code)
}

func TestRefundReleasesUse(t *testing.T) {
	repo := &mockCodeRepo{}
	svc := newCodeService(repo, &mockCodeAudit{})

	require.NoError(t, svc.Refund(context.Background(), "ac1"))
	assert.Equal(t, []string{"ac1"}, repo.releasedIDs)
}

func TestRefundUnknownCode(t *testing.T) {
	repo := &mockCodeRepo{releaseErr: sql.ErrNoRows}
	svc := newCodeService(repo, &mockCodeAudit{})

	err := svc.Refund(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRevokeRecordsAudit(t *testing.T) {
	repo := &mockCodeRepo{}
	audit := &mockCodeAudit{}
	svc := newCodeService(repo, audit)

	require.NoError(t, svc.Revoke(context.Background(), "ac1", "admin1"))
	assert.Equal(t, []string{"ac1"}, repo.revokedIDs)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCodeRevoked, audit.logs[0].Action)
}
