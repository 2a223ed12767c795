package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/middleware"
	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/pkg/response"
)

type dashboardService interface {
	ProgramDashboard(ctx context.Context, actor *models.JWTClaims) (*dto.ProgramDashboardResponse, bool, error)
	StudentProgress(ctx context.Context, actor *models.JWTClaims) ([]dto.StudentProgressItem, bool, error)
}

// DashboardHandler exposes the program dashboard endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Program godoc
// @Summary Program-wide dashboard counts
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Program(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	dashboard, cached, err := h.service.ProgramDashboard(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.ExtractMeta(c))
}

// Progress godoc
// @Summary Per-placement student progress overview
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/progress [get]
func (h *DashboardHandler) Progress(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, cached, err := h.service.StudentProgress(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}
