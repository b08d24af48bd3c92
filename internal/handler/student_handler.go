package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/service"
	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
	"github.com/noah-isme/mentorship-api/pkg/response"
)

// StudentHandler wires roster endpoints to the student service.
type StudentHandler struct {
	service *service.StudentService
}

// NewStudentHandler creates a new handler.
func NewStudentHandler(svc *service.StudentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Description Lists the roster filtered by program, cohort and status
// @Tags Students
// @Produce json
// @Param program_id query string false "Program filter"
// @Param cohort_year query int false "Cohort year filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := service.StudentListFilter{ProgramID: c.Query("program_id")}
	filter.CohortYear, _ = strconv.Atoi(c.Query("cohort_year"))
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	if raw := c.Query("status"); raw != "" {
		status := models.StudentStatus(raw)
		switch status {
		case models.StudentStatusActive, models.StudentStatusGraduated, models.StudentStatusWithdrawn:
			filter.Status = &status
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown student status"))
			return
		}
	}

	students, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// UpdateStatus godoc
// @Summary Change a student's standing
// @Description Moves a student between ACTIVE, GRADUATED and WITHDRAWN
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/status [patch]
func (h *StudentHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStudentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	student, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
