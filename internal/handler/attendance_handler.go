package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/service"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

// AttendanceHandler wires the staff-facing attendance and score endpoints.
type AttendanceHandler struct {
	service  *service.AttendanceService
	students studentResolver
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService, students studentResolver) *AttendanceHandler {
	return &AttendanceHandler{service: svc, students: students}
}

// CreateLesson godoc
// @Summary Schedule a lesson
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lessons [post]
func (h *AttendanceHandler) CreateLesson(c *gin.Context) {
	var req models.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}

	lesson, err := h.service.CreateLesson(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Record godoc
// @Summary Record lesson attendance
// @Description Upserts the status for one student-lesson pair
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req models.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	record, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Student ID"
// @Param program_id query string false "Program ID"
// @Param status query string false "Attendance status"
// @Param date_from query string false "Date from (RFC 3339)"
// @Param date_to query string false "Date to (RFC 3339)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	filter := models.LessonAttendanceFilter{
		StudentID: c.Query("student_id"),
		ProgramID: c.Query("program_id"),
		Page:      page,
		PageSize:  pageSize,
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status"))
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("date_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date_from"))
			return
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("date_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date_to"))
			return
		}
		filter.DateTo = &to
	}

	rows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// RecordScore godoc
// @Summary Record an exam score
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body models.RecordScoreRequest true "Score payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scores [post]
func (h *AttendanceHandler) RecordScore(c *gin.Context) {
	var req models.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}

	score, err := h.service.RecordScore(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, score)
}

// MarkWeekly godoc
// @Summary Mark weekly attendance
// @Description Sets a student-week directly, for staff corrections
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkWeeklyRequest true "Weekly payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /weekly [post]
func (h *AttendanceHandler) MarkWeekly(c *gin.Context) {
	var req models.MarkWeeklyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid weekly payload"))
		return
	}

	record, err := h.service.MarkWeekly(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// WeeklyHistory godoc
// @Summary Weekly attendance history
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/weekly [get]
func (h *AttendanceHandler) WeeklyHistory(c *gin.Context) {
	studentID := c.Param("id")
	if !studentScopeAllowed(c, h.students, studentID) {
		return
	}
	rows, err := h.service.WeeklyHistory(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
