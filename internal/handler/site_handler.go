package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/middleware"
	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
	"github.com/fieldtrack/practicum-api/pkg/response"
)

type siteService interface {
	Create(ctx context.Context, req dto.CreateSiteRequest, actor *models.JWTClaims) (*models.Site, error)
	Get(ctx context.Context, id string) (*models.Site, error)
	List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error)
	SendContract(ctx context.Context, siteID string, req dto.SendContractRequest, actor *models.JWTClaims) (*models.LearningContract, string, error)
	SubmitContract(ctx context.Context, token string, req dto.SubmitContractRequest) (*models.LearningContract, error)
	ReviewContract(ctx context.Context, contractID string, req dto.ReviewContractRequest, actor *models.JWTClaims) (*models.LearningContract, error)
	ApproveSite(ctx context.Context, siteID string, actor *models.JWTClaims) (*models.Site, error)
	GetCurrentContract(ctx context.Context, siteID string, actor *models.JWTClaims) (*models.LearningContract, error)
}

// SiteHandler exposes REST endpoints for sites and learning contracts. The
// contract submission endpoint is public and authenticated by token alone.
type SiteHandler struct {
	service siteService
}

// NewSiteHandler constructs the handler.
func NewSiteHandler(service siteService) *SiteHandler {
	return &SiteHandler{service: service}
}

// Create godoc
// @Summary Register a new site
// @Tags Sites
// @Accept json
// @Produce json
// @Param payload body dto.CreateSiteRequest true "Site details"
// @Success 201 {object} response.Envelope
// @Router /sites [post]
func (h *SiteHandler) Create(c *gin.Context) {
	var req dto.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid site payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	site, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, site, nil)
}

// List godoc
// @Summary List sites
// @Tags Sites
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Name search"
// @Success 200 {object} response.Envelope
// @Router /sites [get]
func (h *SiteHandler) List(c *gin.Context) {
	filter := models.SiteFilter{Search: strings.TrimSpace(c.Query("search"))}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	sites, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sites, nil)
}

// Get godoc
// @Summary Get site detail
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Router /sites/{id} [get]
func (h *SiteHandler) Get(c *gin.Context) {
	site, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site, nil)
}

// SendContract godoc
// @Summary Issue a learning contract to an agency
// @Tags Sites
// @Accept json
// @Produce json
// @Param id path string true "Site ID"
// @Param payload body dto.SendContractRequest true "Recipient"
// @Success 201 {object} response.Envelope
// @Router /sites/{id}/contracts [post]
func (h *SiteHandler) SendContract(c *gin.Context) {
	var req dto.SendContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid contract payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	contract, token, err := h.service.SendContract(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"contract": contract, "token": token}, nil)
}

// SubmitContract godoc
// @Summary Submit a learning contract (agency side, token authenticated)
// @Tags Sites
// @Accept json
// @Produce json
// @Param token path string true "Capability token"
// @Param payload body dto.SubmitContractRequest true "Agency details"
// @Success 200 {object} response.Envelope
// @Router /contracts/submit/{token} [post]
func (h *SiteHandler) SubmitContract(c *gin.Context) {
	var req dto.SubmitContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid contract payload"))
		return
	}
	contract, err := h.service.SubmitContract(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.ContextAuditResourceKey, contract.ID)
	response.JSON(c, http.StatusOK, contract, nil)
}

// ReviewContract godoc
// @Summary Review a submitted learning contract
// @Tags Sites
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param payload body dto.ReviewContractRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Router /contracts/{id}/review [post]
func (h *SiteHandler) ReviewContract(c *gin.Context) {
	var req dto.ReviewContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	contract, err := h.service.ReviewContract(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contract, nil)
}

// Approve godoc
// @Summary Final-approve a site
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Router /sites/{id}/approve [post]
func (h *SiteHandler) Approve(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	site, err := h.service.ApproveSite(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site, nil)
}

// CurrentContract godoc
// @Summary Get the latest contract for a site
// @Tags Sites
// @Produce json
// @Param id path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Router /sites/{id}/contracts/current [get]
func (h *SiteHandler) CurrentContract(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	contract, err := h.service.GetCurrentContract(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contract, nil)
}
