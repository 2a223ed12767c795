package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
	"github.com/fieldtrack/practicum-api/pkg/response"
)

type placementService interface {
	Request(ctx context.Context, req dto.RequestPlacementRequest, actor *models.JWTClaims) (*models.Placement, error)
	Approve(ctx context.Context, id string, req dto.ApprovePlacementRequest, actor *models.JWTClaims) (*models.Placement, error)
	Reject(ctx context.Context, id string, req dto.RejectPlacementRequest, actor *models.JWTClaims) (*models.Placement, error)
	Activate(ctx context.Context, id string, actor *models.JWTClaims) (*models.Placement, error)
	Archive(ctx context.Context, id string, actor *models.JWTClaims) (*models.ArchiveResult, error)
	SetArtifactFlags(ctx context.Context, id string, req dto.ArtifactFlagsRequest, actor *models.JWTClaims) (*models.ActivationReadiness, error)
	Readiness(ctx context.Context, id string, actor *models.JWTClaims) (*models.ActivationReadiness, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Placement, error)
	List(ctx context.Context, query dto.PlacementQuery, actor *models.JWTClaims) ([]models.Placement, error)
}

type hoursSummaryService interface {
	ComputeSummary(ctx context.Context, placementID string) (*models.HoursSummary, error)
}

// PlacementHandler exposes REST endpoints for the placement lifecycle.
type PlacementHandler struct {
	service placementService
	hours   hoursSummaryService
}

// NewPlacementHandler constructs the handler.
func NewPlacementHandler(service placementService, hours hoursSummaryService) *PlacementHandler {
	return &PlacementHandler{service: service, hours: hours}
}

// Create godoc
// @Summary Request a new placement
// @Tags Placements
// @Accept json
// @Produce json
// @Param payload body dto.RequestPlacementRequest true "Placement request"
// @Success 201 {object} response.Envelope
// @Router /placements [post]
func (h *PlacementHandler) Create(c *gin.Context) {
	var req dto.RequestPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid placement payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	placement, err := h.service.Request(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, placement, nil)
}

// List godoc
// @Summary List placements visible to the caller
// @Tags Placements
// @Produce json
// @Param status query string false "Lifecycle status"
// @Param student_id query string false "Student ID"
// @Param site_id query string false "Site ID"
// @Success 200 {object} response.Envelope
// @Router /placements [get]
func (h *PlacementHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	query := dto.PlacementQuery{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		SiteID:    strings.TrimSpace(c.Query("site_id")),
		ClassID:   strings.TrimSpace(c.Query("class_id")),
	}
	if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
		query.Status = []models.PlacementStatus{models.PlacementStatus(status)}
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
	placements, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, placements, nil)
}

// Get godoc
// @Summary Get placement detail
// @Tags Placements
// @Produce json
// @Param id path string true "Placement ID"
// @Success 200 {object} response.Envelope
// @Router /placements/{id} [get]
func (h *PlacementHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	placement, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, placement, nil)
}

// Approve godoc
// @Summary Approve a pending placement
// @Tags Placements
// @Accept json
// @Produce json
// @Param id path string true "Placement ID"
// @Param payload body dto.ApprovePlacementRequest false "Approval notes"
// @Success 200 {object} response.Envelope
// @Router /placements/{id}/approve [post]
func (h *PlacementHandler) Approve(c *gin.Context) {
	var req dto.ApprovePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	placement, err := h.service.Approve(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, placement, nil)
}

// Reject godoc
// @Summary Reject a pending placement
// @Tags Placements
// @Accept json
// @Produce json
// @Param id path string true "Placement ID"
// @Param payload body dto.RejectPlacementRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /placements/{id}/reject [post]
func (h *PlacementHandler) Reject(c *gin.Context) {
	var req dto.RejectPlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	placement, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, placement, nil)
}

// Activate godoc
// @Summary Activate an approved placement
// @Tags Placements
// @Produce json
// @Param id path string true "Placement ID"
// @Success 200 {object} response.Envelope
// @Router /placements/{id}/activate [post]
func (h *PlacementHandler) Activate(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	placement, err := h.service.Activate(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, placement, nil)
}

// Archive godoc
// @Summary Archive a completed placement
// @Tags Placements
// @Produce json
// @Param id path string true "Placement ID"
// @Success 200 {object} response.Envelope
// @Router /placements/{id}/archive [post]
func (h *PlacementHandler) Archive(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	result, err := h.service.Archive(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetArtifacts godoc
// @Summary Update onboarding artifact flags
// @Tags Placements
// @Accept json
// @Produce json
// @Param id path string true "Placement ID"
// @Param payload body dto.ArtifactFlagsRequest true "Artifact flags"
// @Success 200 {object} response.Envelope
// @Router /placements/{id}/artifacts [patch]
func (h *PlacementHandler) SetArtifacts(c *gin.Context) {
	var req dto.ArtifactFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid artifact payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	readiness, err := h.service.SetArtifactFlags(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, readiness, nil)
}

// Readiness godoc
// @Summary Check activation readiness
// @Tags Placements
// @Produce json
// @Param id path string true "Placement ID"
// @Success 200 {object} response.Envelope
// @Router /placements/{id}/readiness [get]
func (h *PlacementHandler) Readiness(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	readiness, err := h.service.Readiness(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, readiness, nil)
}

// HoursSummary godoc
// @Summary Get the hours summary for a placement
// @Tags Placements
// @Produce json
// @Param id path string true "Placement ID"
// @Success 200 {object} response.Envelope
// @Router /placements/{id}/hours [get]
func (h *PlacementHandler) HoursSummary(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	// Visibility is enforced by the placement lookup.
	if _, err := h.service.Get(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.hours.ComputeSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
