package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/service"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

type studentResolver interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// ProgressHandler exposes computed progress, projection and eligibility
// views.
type ProgressHandler struct {
	progress    *service.ProgressService
	eligibility *service.EligibilityService
	students    studentResolver
}

// NewProgressHandler creates a new handler.
func NewProgressHandler(progress *service.ProgressService, eligibility *service.EligibilityService, students studentResolver) *ProgressHandler {
	return &ProgressHandler{progress: progress, eligibility: eligibility, students: students}
}

// studentScopeAllowed enforces that students only read their own records;
// staff roles see everyone. Writes the error response on denial.
func studentScopeAllowed(c *gin.Context, students studentResolver, studentID string) bool {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return false
	}
	if claims.Role != models.RoleStudent {
		return true
	}
	student, err := students.FindByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no student profile for user"))
			return false
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student"))
		return false
	}
	if student.ID != studentID {
		response.Error(c, appErrors.ErrForbidden)
		return false
	}
	return true
}

func (h *ProgressHandler) authorize(c *gin.Context, studentID string) bool {
	return studentScopeAllowed(c, h.students, studentID)
}

// Progress godoc
// @Summary Student progress
// @Description Recomputes the attendance and score view for a student
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *ProgressHandler) Progress(c *gin.Context) {
	studentID := c.Param("id")
	if !h.authorize(c, studentID) {
		return
	}
	progress, err := h.progress.StudentProgress(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// Projection godoc
// @Summary Absence projection
// @Description Computes the signed margin of future absences before the student falls below threshold
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Param remaining query int false "Override for the remaining lesson count"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/projection [get]
func (h *ProgressHandler) Projection(c *gin.Context) {
	studentID := c.Param("id")
	if !h.authorize(c, studentID) {
		return
	}

	var remaining *int
	if raw := c.Query("remaining"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "remaining must be an integer"))
			return
		}
		remaining = &value
	}

	projection, err := h.progress.Projection(c.Request.Context(), studentID, remaining)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projection, nil)
}

// Eligibility godoc
// @Summary Graduation eligibility
// @Description Combines the academic and weekly domains into one graduation decision
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/eligibility [get]
func (h *ProgressHandler) Eligibility(c *gin.Context) {
	studentID := c.Param("id")
	if !h.authorize(c, studentID) {
		return
	}
	decision, err := h.eligibility.Evaluate(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}
