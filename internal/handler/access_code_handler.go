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

// AccessCodeHandler wires HTTP endpoints to the access code service.
type AccessCodeHandler struct {
	service *service.AccessCodeService
}

// NewAccessCodeHandler creates a new handler.
func NewAccessCodeHandler(svc *service.AccessCodeService) *AccessCodeHandler {
	return &AccessCodeHandler{service: svc}
}

// Issue godoc
// @Summary Issue an access code
// @Description Mints a new invite or weekly code
// @Tags AccessCodes
// @Accept json
// @Produce json
// @Param payload body service.IssueCodeRequest true "Issue payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /access-codes [post]
func (h *AccessCodeHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.IssueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid issue payload"))
		return
	}

	code, err := h.service.Issue(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, code)
}

// List godoc
// @Summary List access codes
// @Description Lists issued codes, optionally filtered by type
// @Tags AccessCodes
// @Produce json
// @Param type query string false "Code type"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /access-codes [get]
func (h *AccessCodeHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	var codeType *models.CodeType
	if raw := c.Query("type"); raw != "" {
		ct := models.CodeType(raw)
		if !ct.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown code type"))
			return
		}
		codeType = &ct
	}

	codes, total, err := h.service.List(c.Request.Context(), codeType, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total})
}

// Revoke godoc
// @Summary Revoke an access code
// @Description Permanently deactivates a code
// @Tags AccessCodes
// @Produce json
// @Param id path string true "Code ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /access-codes/{id} [delete]
func (h *AccessCodeHandler) Revoke(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Revoke(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Validate godoc
// @Summary Validate an access code
// @Description Checks a code without consuming a use
// @Tags AccessCodes
// @Accept json
// @Produce json
// @Param payload body object true "Code value"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /access-codes/validate [post]
func (h *AccessCodeHandler) Validate(c *gin.Context) {
	var payload struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "code required"))
		return
	}

	result, err := h.service.Validate(c.Request.Context(), payload.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
