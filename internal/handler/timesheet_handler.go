package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/internal/service"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
	"github.com/fieldtrack/practicum-api/pkg/response"
)

type timesheetService interface {
	LogHours(ctx context.Context, req dto.LogHoursRequest, actor *models.JWTClaims) (*models.TimesheetEntry, error)
	UpdateEntry(ctx context.Context, id string, req dto.UpdateEntryRequest, actor *models.JWTClaims) (*models.TimesheetEntry, error)
	SubmitWeek(ctx context.Context, req dto.SubmitWeekRequest, actor *models.JWTClaims) ([]models.TimesheetEntry, error)
	ApproveEntry(ctx context.Context, id string, actor *models.JWTClaims) (*models.TimesheetEntry, error)
	RejectEntry(ctx context.Context, id string, req dto.RejectEntryRequest, actor *models.JWTClaims) (*models.TimesheetEntry, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.TimesheetEntry, error)
	List(ctx context.Context, query dto.TimesheetQuery, actor *models.JWTClaims) ([]models.TimesheetEntry, error)
}

type exportService interface {
	HoursLog(ctx context.Context, placementID string, format service.ExportFormat, actor *models.JWTClaims) (*service.ExportResult, error)
}

// TimesheetHandler exposes REST endpoints for hour logging and review.
type TimesheetHandler struct {
	service timesheetService
	exports exportService
}

// NewTimesheetHandler constructs the handler.
func NewTimesheetHandler(service timesheetService, exports exportService) *TimesheetHandler {
	return &TimesheetHandler{service: service, exports: exports}
}

// Create godoc
// @Summary Log hours against a placement
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param payload body dto.LogHoursRequest true "Hours entry"
// @Success 201 {object} response.Envelope
// @Router /timesheets [post]
func (h *TimesheetHandler) Create(c *gin.Context) {
	var req dto.LogHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid hours payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	entry, err := h.service.LogHours(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, entry, nil)
}

// Update godoc
// @Summary Edit a draft or rejected entry
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.UpdateEntryRequest true "Entry changes"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id} [patch]
func (h *TimesheetHandler) Update(c *gin.Context) {
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid entry payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	entry, err := h.service.UpdateEntry(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// SubmitWeek godoc
// @Summary Submit a week of draft entries for review
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param payload body dto.SubmitWeekRequest true "Week window"
// @Success 200 {object} response.Envelope
// @Router /timesheets/submit-week [post]
func (h *TimesheetHandler) SubmitWeek(c *gin.Context) {
	var req dto.SubmitWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid week payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	entries, err := h.service.SubmitWeek(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Approve godoc
// @Summary Approve an entry at the caller's review stage
// @Tags Timesheets
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id}/approve [post]
func (h *TimesheetHandler) Approve(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	entry, err := h.service.ApproveEntry(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Reject godoc
// @Summary Reject an entry with a reason
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.RejectEntryRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id}/reject [post]
func (h *TimesheetHandler) Reject(c *gin.Context) {
	var req dto.RejectEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	entry, err := h.service.RejectEntry(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Get godoc
// @Summary Get a timesheet entry
// @Tags Timesheets
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /timesheets/{id} [get]
func (h *TimesheetHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// List godoc
// @Summary List timesheet entries
// @Tags Timesheets
// @Produce json
// @Param placement_id query string false "Placement ID"
// @Param status query string false "Entry status"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timesheets [get]
func (h *TimesheetHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	query := dto.TimesheetQuery{
		PlacementID: strings.TrimSpace(c.Query("placement_id")),
		StudentID:   strings.TrimSpace(c.Query("student_id")),
		Status:      strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			query.From = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			query.To = &t
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			query.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			query.Offset = offset
		}
	}
	entries, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Download a placement's hours log
// @Tags Timesheets
// @Produce octet-stream
// @Param placement_id path string true "Placement ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /placements/{placement_id}/hours/export [get]
func (h *TimesheetHandler) Export(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.HoursLog(c.Request.Context(), c.Param("id"), format, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
