package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mentorship-api/internal/middleware"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/service"
)

type fakeStudentRepo struct {
	students map[string]*models.Student
	byUser   map[string]*models.Student
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := f.byUser[userID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeAttendanceSource struct {
	statuses  []string
	remaining int
}

func (f *fakeAttendanceSource) Statuses(ctx context.Context, studentID string) ([]string, error) {
	return f.statuses, nil
}

func (f *fakeAttendanceSource) RemainingLessons(ctx context.Context, programID string, after time.Time) (int, error) {
	return f.remaining, nil
}

type fakeScoreSource struct {
	scores []models.ExamScore
}

func (f *fakeScoreSource) ListByStudent(ctx context.Context, studentID string) ([]models.ExamScore, error) {
	return f.scores, nil
}

func newProgressHandlerFixture() (*ProgressHandler, *fakeStudentRepo) {
	students := &fakeStudentRepo{
		students: map[string]*models.Student{
			"s1": {ID: "s1", UserID: "u1", ProgramID: "p1", FullName: "Own Student"},
			"s2": {ID: "s2", UserID: "u2", ProgramID: "p1", FullName: "Other Student"},
		},
		byUser: map[string]*models.Student{},
	}
	students.byUser["u1"] = students.students["s1"]
	students.byUser["u2"] = students.students["s2"]

	attendance := &fakeAttendanceSource{statuses: []string{"PRESENT", "PRESENT", "ABSENT"}}
	scores := &fakeScoreSource{}
	progress := service.NewProgressService(students, attendance, scores, nil, nil)
	eligibility := service.NewEligibilityService(students, attendance, scores, attendance, nil)
	return NewProgressHandler(progress, eligibility, students), students
}

func progressContext(t *testing.T, role models.UserRole, userID, studentID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/"+studentID+"/progress", nil)
	c.Params = gin.Params{{Key: "id", Value: studentID}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
	return c, rec
}

func TestProgressHandlerStudentSeesOwnRecord(t *testing.T) {
	handler, _ := newProgressHandlerFixture()
	c, rec := progressContext(t, models.RoleStudent, "u1", "s1")

	handler.Progress(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.StudentProgress `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "s1", envelope.Data.StudentID)
}

func TestProgressHandlerStudentBlockedFromOthers(t *testing.T) {
	handler, _ := newProgressHandlerFixture()
	c, rec := progressContext(t, models.RoleStudent, "u1", "s2")

	handler.Progress(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProgressHandlerMentorSeesAnyStudent(t *testing.T) {
	handler, _ := newProgressHandlerFixture()
	c, rec := progressContext(t, models.RoleMentor, "u9", "s2")

	handler.Eligibility(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProgressHandlerMissingClaims(t *testing.T) {
	handler, _ := newProgressHandlerFixture()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/s1/progress", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.Progress(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProgressHandlerUnknownStudent(t *testing.T) {
	handler, _ := newProgressHandlerFixture()
	c, rec := progressContext(t, models.RoleAdmin, "u9", "missing")

	handler.Projection(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
