package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

type mockRegUserRepo struct {
	existing  *models.User
	created   []*models.User
	audits    []*models.AuditLog
	createErr error
}

func (m *mockRegUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.existing != nil && m.existing.Email == email {
		return m.existing, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "u1"
	m.created = append(m.created, user)
	return nil
}

func (m *mockRegUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

type mockRegStudentRepo struct {
	byUserID  *models.Student
	created   []*models.Student
	createErr error
}

func (m *mockRegStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if m.byUserID != nil {
		return m.byUserID, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	student.ID = "s1"
	m.created = append(m.created, student)
	return nil
}

type mockRedeemer struct {
	code     *models.AccessCode
	err      error
	redeemed []string
	refunded []string
}

func (m *mockRedeemer) Redeem(ctx context.Context, value string, expected models.CodeType) (*models.AccessCode, error) {
	m.redeemed = append(m.redeemed, value)
	if m.err != nil {
		return nil, m.err
	}
	return m.code, nil
}

func (m *mockRedeemer) Refund(ctx context.Context, id string) error {
	m.refunded = append(m.refunded, id)
	return nil
}

type mockWeeklyMarker struct {
	marks []*models.WeeklyAttendance
}

func (m *mockWeeklyMarker) Mark(ctx context.Context, record *models.WeeklyAttendance) (*models.WeeklyAttendance, error) {
	m.marks = append(m.marks, record)
	return record, nil
}

func newRegistrationService(users *mockRegUserRepo, students *mockRegStudentRepo, codes *mockRedeemer, weekly *mockWeeklyMarker) *RegistrationService {
	return NewRegistrationService(users, students, codes, weekly, validator.New(), zap.NewNop(), 12)
}

func validRegisterRequest() models.RegisterRequest {
	return models.RegisterRequest{
		InviteCode: "MP-ABCD2345",
		Email:      "new@example.com",
		FullName:   "New Student",
		ProgramID:  "p1",
		CohortYear: 2026,
	}
}

func TestRegisterCreatesStudentAccount(t *testing.T) {
	users := &mockRegUserRepo{}
	students := &mockRegStudentRepo{}
	codes := &mockRedeemer{code: &models.AccessCode{ID: "ac1", Type: models.CodeTypeInvite}}
	svc := newRegistrationService(users, students, codes, &mockWeeklyMarker{})

	resp, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "s1", resp.StudentID)
	assert.Len(t, resp.TemporaryPassword, 12)
	assert.Regexp(t, regexp.MustCompile(`[A-Z]`), resp.TemporaryPassword)
	assert.Regexp(t, regexp.MustCompile(`[!@#$%^&*]`), resp.TemporaryPassword)

	require.Len(t, users.created, 1)
	assert.Equal(t, models.RoleStudent, users.created[0].Role)
	assert.True(t, users.created[0].MustChangePW)
	assert.NotEqual(t, resp.TemporaryPassword, users.created[0].PasswordHash)

	require.Len(t, students.created, 1)
	assert.Equal(t, models.StudentStatusActive, students.created[0].Status)
	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionRegistration, users.audits[0].Action)
}

func TestRegisterDuplicateEmailSkipsCode(t *testing.T) {
	users := &mockRegUserRepo{existing: &models.User{Email: "new@example.com"}}
	codes := &mockRedeemer{code: &models.AccessCode{ID: "ac1"}}
	svc := newRegistrationService(users, &mockRegStudentRepo{}, codes, &mockWeeklyMarker{})

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, codes.redeemed)
	assert.Empty(t, users.created)
}

func TestRegisterRejectedCodeCreatesNothing(t *testing.T) {
	users := &mockRegUserRepo{}
	students := &mockRegStudentRepo{}
	codes := &mockRedeemer{err: appErrors.Clone(appErrors.ErrCodeRejected, models.CodeReasonExpired)}
	svc := newRegistrationService(users, students, codes, &mockWeeklyMarker{})

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Empty(t, users.created)
	assert.Empty(t, students.created)
}

func TestRegisterUserCreateFailureRefundsCode(t *testing.T) {
	users := &mockRegUserRepo{createErr: errors.New("insert failed")}
	students := &mockRegStudentRepo{}
	codes := &mockRedeemer{code: &models.AccessCode{ID: "ac1", Type: models.CodeTypeInvite}}
	svc := newRegistrationService(users, students, codes, &mockWeeklyMarker{})

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, []string{"ac1"}, codes.refunded)
	assert.Empty(t, students.created)
}

func TestRegisterStudentCreateFailureRefundsCode(t *testing.T) {
	users := &mockRegUserRepo{}
	students := &mockRegStudentRepo{createErr: errors.New("insert failed")}
	codes := &mockRedeemer{code: &models.AccessCode{ID: "ac1", Type: models.CodeTypeInvite}}
	svc := newRegistrationService(users, students, codes, &mockWeeklyMarker{})

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, []string{"ac1"}, codes.refunded)
}

func TestWeeklyCheckInMarksPresent(t *testing.T) {
	students := &mockRegStudentRepo{byUserID: &models.Student{ID: "s1", UserID: "u1"}}
	codes := &mockRedeemer{code: &models.AccessCode{ID: "ac1", Type: models.CodeTypeWeekly}}
	weekly := &mockWeeklyMarker{}
	svc := newRegistrationService(&mockRegUserRepo{}, students, codes, weekly)

	record, err := svc.WeeklyCheckIn(context.Background(), "u1", models.WeeklyCheckInRequest{Code: "WK-ABC234", Year: 2026, Week: 34})
	require.NoError(t, err)
	assert.Equal(t, models.WeeklyStatusPresent, record.Status)
	require.Len(t, weekly.marks, 1)
	assert.Equal(t, "s1", weekly.marks[0].StudentID)
}

func TestWeeklyCheckInRejectedCodeMarksRejected(t *testing.T) {
	students := &mockRegStudentRepo{byUserID: &models.Student{ID: "s1", UserID: "u1"}}
	codes := &mockRedeemer{err: appErrors.Clone(appErrors.ErrCodeRejected, models.CodeReasonMaximumUsage)}
	weekly := &mockWeeklyMarker{}
	svc := newRegistrationService(&mockRegUserRepo{}, students, codes, weekly)

	_, err := svc.WeeklyCheckIn(context.Background(), "u1", models.WeeklyCheckInRequest{Code: "WK-USED99", Year: 2026, Week: 34})
	require.Error(t, err)
	require.Len(t, weekly.marks, 1)
	assert.Equal(t, models.WeeklyStatusRejected, weekly.marks[0].Status)
}

func TestWeeklyCheckInWithoutStudentProfile(t *testing.T) {
	svc := newRegistrationService(&mockRegUserRepo{}, &mockRegStudentRepo{}, &mockRedeemer{}, &mockWeeklyMarker{})
	_, err := svc.WeeklyCheckIn(context.Background(), "u1", models.WeeklyCheckInRequest{Code: "WK-ABC234", Year: 2026, Week: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
