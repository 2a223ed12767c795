package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/internal/repository"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

type siteStore interface {
	Create(ctx context.Context, site *models.Site) error
	GetByID(ctx context.Context, id string) (*models.Site, error)
	List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error)
	Activate(ctx context.Context, id string) error
}

type contractStore interface {
	Create(ctx context.Context, contract *models.LearningContract) error
	GetByID(ctx context.Context, id string) (*models.LearningContract, error)
	GetByToken(ctx context.Context, token string) (*models.LearningContract, error)
	GetCurrentBySite(ctx context.Context, siteID string) (*models.LearningContract, error)
	UpdateStatus(ctx context.Context, params repository.UpdateContractStatusParams) error
}

type contractSigner interface {
	Generate(contractID string) (string, time.Time, error)
	Parse(token string) (contractID string, expiresAt time.Time, err error)
}

type siteNotifier interface {
	ContractSent(ctx context.Context, contract *models.LearningContract, submitURLToken string)
	ContractSubmitted(ctx context.Context, contract *models.LearningContract)
	SiteApproved(ctx context.Context, site *models.Site)
}

// SiteService owns agency sites and their learning contract workflow. A site
// starts inactive and only becomes eligible to host placements after final
// approval, which for contract-requiring sites means an approved contract.
type SiteService struct {
	sites      siteStore
	contracts  contractStore
	signer     contractSigner
	audit      auditLogger
	notifier   siteNotifier
	metrics    *MetricsService
	dashboards dashboardInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// WithMetrics attaches contract workflow counters. Safe to skip in tests.
func (s *SiteService) WithMetrics(metrics *MetricsService) *SiteService {
	s.metrics = metrics
	return s
}

// WithDashboards drops cached dashboard counts after contract and site
// transitions. Safe to skip in tests.
func (s *SiteService) WithDashboards(dashboards dashboardInvalidator) *SiteService {
	s.dashboards = dashboards
	return s
}

func (s *SiteService) invalidateDashboards(ctx context.Context) {
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}
}

func NewSiteService(
	sites siteStore,
	contracts contractStore,
	signer contractSigner,
	audit auditLogger,
	notifier siteNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *SiteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SiteService{
		sites:     sites,
		contracts: contracts,
		signer:    signer,
		audit:     audit,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Create registers a new inactive site.
func (s *SiteService) Create(ctx context.Context, req dto.CreateSiteRequest, actor *models.JWTClaims) (*models.Site, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid site")
	}
	site := &models.Site{
		Name:             strings.TrimSpace(req.Name),
		Address:          strings.TrimSpace(req.Address),
		City:             strings.TrimSpace(req.City),
		State:            strings.TrimSpace(req.State),
		ContactName:      strings.TrimSpace(req.ContactName),
		ContactEmail:     strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContactPhone:     strings.TrimSpace(req.ContactPhone),
		RequiresContract: req.RequiresContract,
		Active:           false,
	}
	if err := s.sites.Create(ctx, site); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create site")
	}
	return site, nil
}

// Get returns one site.
func (s *SiteService) Get(ctx context.Context, id string) (*models.Site, error) {
	return s.loadSite(ctx, id)
}

// List returns sites matching the filter.
func (s *SiteService) List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error) {
	sites, err := s.sites.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sites")
	}
	return sites, nil
}

// SendContract issues a learning contract to the agency recipient. The
// capability token returned to the caller is the only credential the agency
// needs to submit; it is never exposed again after this call.
func (s *SiteService) SendContract(ctx context.Context, siteID string, req dto.SendContractRequest, actor *models.JWTClaims) (*models.LearningContract, string, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, "", err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contract request")
	}
	site, err := s.loadSite(ctx, siteID)
	if err != nil {
		return nil, "", err
	}
	if site.Active {
		return nil, "", appErrors.Clone(appErrors.ErrInvalidState, "site is already approved")
	}
	if current, err := s.contracts.GetCurrentBySite(ctx, site.ID); err == nil && current != nil {
		switch current.Status {
		case models.ContractStatusSent, models.ContractStatusSubmitted:
			return nil, "", appErrors.Clone(appErrors.ErrConflict, "site already has a contract in flight")
		case models.ContractStatusApproved:
			return nil, "", appErrors.Clone(appErrors.ErrInvalidState, "site already has an approved contract")
		}
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current contract")
	}

	contract := &models.LearningContract{
		ID:             uuid.NewString(),
		SiteID:         site.ID,
		Status:         models.ContractStatusSent,
		RecipientName:  strings.TrimSpace(req.RecipientName),
		RecipientEmail: strings.ToLower(strings.TrimSpace(req.RecipientEmail)),
	}
	signed, _, err := s.signer.Generate(contract.ID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign contract token")
	}
	contract.Token = signed
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contract")
	}

	s.metrics.RecordContractEvent(models.ContractStatusSent)
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionContractSend, contract.ID, contract)
	if s.notifier != nil {
		s.notifier.ContractSent(ctx, contract, signed)
	}
	return contract, signed, nil
}

// SubmitContract records the agency's submission. The endpoint is public; the
// signed token is the entire credential, so an invalid or expired token maps
// to unauthorized rather than not found.
func (s *SiteService) SubmitContract(ctx context.Context, token string, req dto.SubmitContractRequest) (*models.LearningContract, error) {
	if _, _, err := s.signer.Parse(token); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired contract token")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contract submission")
	}
	contract, err := s.contracts.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired contract token")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract")
	}
	if contract.Status != models.ContractStatusSent {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "contract is not open for submission")
	}

	now := time.Now().UTC()
	directorName := strings.TrimSpace(req.DirectorName)
	agencyAddress := strings.TrimSpace(req.AgencyAddress)
	instructorName := strings.TrimSpace(req.InstructorName)
	instructorCredentials := strings.TrimSpace(req.InstructorCredentials)
	programDescription := strings.TrimSpace(req.ProgramDescription)

	err = s.contracts.UpdateStatus(ctx, repository.UpdateContractStatusParams{
		ID:                    contract.ID,
		ExpectedStatus:        models.ContractStatusSent,
		NewStatus:             models.ContractStatusSubmitted,
		DirectorName:          &directorName,
		AgencyAddress:         &agencyAddress,
		InstructorName:        &instructorName,
		InstructorCredentials: &instructorCredentials,
		ProgramDescription:    &programDescription,
		SubmittedAt:           &now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "contract already submitted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit contract")
	}

	contract.Status = models.ContractStatusSubmitted
	contract.DirectorName = &directorName
	contract.AgencyAddress = &agencyAddress
	contract.InstructorName = &instructorName
	contract.InstructorCredentials = &instructorCredentials
	contract.ProgramDescription = &programDescription
	contract.SubmittedAt = &now
	s.metrics.RecordContractEvent(models.ContractStatusSubmitted)
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, "", models.AuditActionContractSubmit, contract.ID, contract)
	if s.notifier != nil {
		s.notifier.ContractSubmitted(ctx, contract)
	}
	return contract, nil
}

// ReviewContract applies the faculty verdict to a submitted contract.
// Approval also performs final site approval, flipping the site active in the
// same call. Rejection requires a reason and leaves the site inactive; a
// fresh contract can then be sent.
func (s *SiteService) ReviewContract(ctx context.Context, contractID string, req dto.ReviewContractRequest, actor *models.JWTClaims) (*models.LearningContract, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "contract is not awaiting review")
	}

	newStatus := models.ContractStatusApproved
	if !req.Approve {
		if strings.TrimSpace(req.Reason) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
		}
		newStatus = models.ContractStatusRejected
	}

	now := time.Now().UTC()
	err = s.contracts.UpdateStatus(ctx, repository.UpdateContractStatusParams{
		ID:             contract.ID,
		ExpectedStatus: models.ContractStatusSubmitted,
		NewStatus:      newStatus,
		ReviewedBy:     &actor.UserID,
		ReviewedAt:     &now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "contract already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review contract")
	}

	contract.Status = newStatus
	contract.ReviewedBy = &actor.UserID
	contract.ReviewedAt = &now
	s.metrics.RecordContractEvent(newStatus)
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionContractReview, contract.ID, contract)

	if req.Approve {
		if err := s.approveSite(ctx, contract.SiteID, actor); err != nil {
			return nil, err
		}
	}
	return contract, nil
}

// ApproveSite performs final site approval directly. Sites that require a
// learning contract must have an approved one on file; sites that do not can
// be approved on faculty judgment alone.
func (s *SiteService) ApproveSite(ctx context.Context, siteID string, actor *models.JWTClaims) (*models.Site, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	site, err := s.loadSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "site is already approved")
	}
	if site.RequiresContract {
		current, err := s.contracts.GetCurrentBySite(ctx, site.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "site requires an approved learning contract")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current contract")
		}
		if current.Status != models.ContractStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "site requires an approved learning contract")
		}
	}
	if err := s.approveSite(ctx, site.ID, actor); err != nil {
		return nil, err
	}
	site.Active = true
	return site, nil
}

// GetCurrentContract returns the most recent contract for a site.
func (s *SiteService) GetCurrentContract(ctx context.Context, siteID string, actor *models.JWTClaims) (*models.LearningContract, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetCurrentBySite(ctx, siteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no contract for site")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract")
	}
	return contract, nil
}

func (s *SiteService) approveSite(ctx context.Context, siteID string, actor *models.JWTClaims) error {
	if err := s.sites.Activate(ctx, siteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidState, "site is already approved")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate site")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionSiteApprove, siteID, map[string]bool{"active": true})
	s.invalidateDashboards(ctx)
	if s.notifier != nil {
		if site, err := s.sites.GetByID(ctx, siteID); err == nil {
			s.notifier.SiteApproved(ctx, site)
		}
	}
	return nil
}

func (s *SiteService) loadSite(ctx context.Context, id string) (*models.Site, error) {
	site, err := s.sites.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "site not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site")
	}
	return site, nil
}

func (s *SiteService) loadContract(ctx context.Context, id string) (*models.LearningContract, error) {
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contract not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract")
	}
	return contract, nil
}

func (s *SiteService) emitAudit(ctx context.Context, userID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(payload)
	log := &models.AuditLog{
		Action:     action,
		Resource:   "site",
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "site-service",
	}
	if userID != "" {
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
