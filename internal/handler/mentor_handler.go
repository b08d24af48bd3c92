package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/service"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

// MentorHandler wires mentor assignment endpoints.
type MentorHandler struct {
	service  *service.MentorService
	students studentResolver
}

// NewMentorHandler creates a new handler.
func NewMentorHandler(svc *service.MentorService, students studentResolver) *MentorHandler {
	return &MentorHandler{service: svc, students: students}
}

// Assign godoc
// @Summary Assign a mentor
// @Description Creates an active assignment, ending any previous one for the student
// @Tags Mentors
// @Accept json
// @Produce json
// @Param payload body service.AssignMentorRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentors/assignments [post]
func (h *MentorHandler) Assign(c *gin.Context) {
	var req service.AssignMentorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// EndAssignment godoc
// @Summary End a mentor assignment
// @Tags Mentors
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentors/assignments/{id} [delete]
func (h *MentorHandler) EndAssignment(c *gin.Context) {
	if err := h.service.EndAssignment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Assignments godoc
// @Summary List a mentor's active assignments
// @Description Pass "me" as the mentor ID to resolve the caller's own mentor profile
// @Tags Mentors
// @Produce json
// @Param id path string true "Mentor ID or me"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentors/{id}/assignments [get]
func (h *MentorHandler) Assignments(c *gin.Context) {
	mentorID := c.Param("id")
	if mentorID == "me" {
		claims := claimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		rows, err := h.service.AssignmentsForUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, rows, nil)
		return
	}

	rows, err := h.service.Assignments(c.Request.Context(), mentorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// CurrentMentor godoc
// @Summary Student's current mentor
// @Description Returns the active assignment and mentor name for a student
// @Tags Mentors
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/mentor [get]
func (h *MentorHandler) CurrentMentor(c *gin.Context) {
	studentID := c.Param("id")
	if !studentScopeAllowed(c, h.students, studentID) {
		return
	}
	view, err := h.service.MentorForStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
