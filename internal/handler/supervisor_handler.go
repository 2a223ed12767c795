package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
	"github.com/fieldtrack/practicum-api/pkg/response"
)

type supervisorService interface {
	ListPending(ctx context.Context, actor *models.JWTClaims) ([]models.PendingSupervisor, error)
	GetPending(ctx context.Context, id string, actor *models.JWTClaims) (*models.PendingSupervisor, error)
	Resolve(ctx context.Context, id string, req dto.ResolvePendingSupervisorRequest, actor *models.JWTClaims) (*dto.ResolvePendingSupervisorResult, error)
}

// SupervisorHandler exposes REST endpoints for pending supervisor review.
type SupervisorHandler struct {
	service supervisorService
}

// NewSupervisorHandler constructs the handler.
func NewSupervisorHandler(service supervisorService) *SupervisorHandler {
	return &SupervisorHandler{service: service}
}

// ListPending godoc
// @Summary List unresolved pending supervisors
// @Tags Supervisors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /supervisors/pending [get]
func (h *SupervisorHandler) ListPending(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	pending, err := h.service.ListPending(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// GetPending godoc
// @Summary Get a pending supervisor record
// @Tags Supervisors
// @Produce json
// @Param id path string true "Pending supervisor ID"
// @Success 200 {object} response.Envelope
// @Router /supervisors/pending/{id} [get]
func (h *SupervisorHandler) GetPending(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	pending, err := h.service.GetPending(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// Resolve godoc
// @Summary Approve or reject a pending supervisor
// @Tags Supervisors
// @Accept json
// @Produce json
// @Param id path string true "Pending supervisor ID"
// @Param payload body dto.ResolvePendingSupervisorRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /supervisors/pending/{id}/resolve [post]
func (h *SupervisorHandler) Resolve(c *gin.Context) {
	var req dto.ResolvePendingSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	result, err := h.service.Resolve(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
