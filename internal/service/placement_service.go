package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/internal/repository"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

type placementStore interface {
	CreateRequest(ctx context.Context, placement *models.Placement, pending *models.PendingSupervisor) error
	GetByID(ctx context.Context, id string) (*models.Placement, error)
	List(ctx context.Context, filter models.PlacementFilter) ([]models.Placement, error)
	UpdateStatus(ctx context.Context, params repository.UpdatePlacementStatusParams) error
	SetArtifactFlags(ctx context.Context, id string, cellPolicy, learningContract, checklist *bool) error
	CountActiveByStudent(ctx context.Context, studentID, excludeID string) (int, error)
}

type placementSiteStore interface {
	GetByID(ctx context.Context, id string) (*models.Site, error)
}

type placementClassStore interface {
	GetByID(ctx context.Context, id string) (*models.FieldClass, error)
}

type supervisorProfileStore interface {
	GetProfileByID(ctx context.Context, id string) (*models.SupervisorProfile, error)
}

type hoursProvider interface {
	ComputeSummary(ctx context.Context, placementID string) (*models.HoursSummary, error)
}

type placementNotifier interface {
	PlacementDecided(ctx context.Context, placement *models.Placement, action string, reason string)
}

// PlacementService owns the placement lifecycle state machine.
type PlacementService struct {
	repo        placementStore
	sites       placementSiteStore
	classes     placementClassStore
	supervisors supervisorProfileStore
	hours       hoursProvider
	audit       auditLogger
	notifier    placementNotifier
	metrics     *MetricsService
	dashboards  dashboardInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// WithMetrics attaches transition counters. Safe to skip in tests.
func (s *PlacementService) WithMetrics(metrics *MetricsService) *PlacementService {
	s.metrics = metrics
	return s
}

// WithDashboards drops cached dashboard counts after each transition. Safe to
// skip in tests.
func (s *PlacementService) WithDashboards(dashboards dashboardInvalidator) *PlacementService {
	s.dashboards = dashboards
	return s
}

func (s *PlacementService) invalidateDashboards(ctx context.Context) {
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}
}

// NewPlacementService constructs the service.
func NewPlacementService(
	repo placementStore,
	sites placementSiteStore,
	classes placementClassStore,
	supervisors supervisorProfileStore,
	hours hoursProvider,
	audit auditLogger,
	notifier placementNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *PlacementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PlacementService{
		repo:        repo,
		sites:       sites,
		classes:     classes,
		supervisors: supervisors,
		hours:       hours,
		audit:       audit,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
}

// Request creates a PENDING placement for the acting student, provisioning a
// pending supervisor in the same transaction when the request names a new one.
func (s *PlacementService) Request(ctx context.Context, req dto.RequestPlacementRequest, actor *models.JWTClaims) (*models.Placement, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students may request placements")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement request")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	if req.Supervisor.SupervisorID == "" && !req.Supervisor.IsNew() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "supervisor must name an existing supervisor or provide new supervisor details")
	}

	site, err := s.sites.GetByID(ctx, req.SiteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "site not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site")
	}
	if !site.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "site is not approved to host placements")
	}

	class, err := s.classes.GetByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	requiredHours := class.RequiredHours
	if req.RequiredHours != nil {
		requiredHours = *req.RequiredHours
	}
	if requiredHours <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "required hours must be positive")
	}

	placement := &models.Placement{
		StudentID:     actor.UserID,
		SiteID:        site.ID,
		ClassID:       class.ID,
		FacultyID:     class.FacultyID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		RequiredHours: requiredHours,
		Status:        models.PlacementStatusPending,
	}

	var pending *models.PendingSupervisor
	if req.Supervisor.SupervisorID != "" {
		profile, err := s.supervisors.GetProfileByID(ctx, req.Supervisor.SupervisorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "supervisor not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
		}
		if profile.SiteID != site.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "supervisor does not belong to the requested site")
		}
		placement.SupervisorID = &profile.ID
	} else {
		pending = &models.PendingSupervisor{
			SiteID:      site.ID,
			FullName:    strings.TrimSpace(req.Supervisor.NewName),
			Email:       strings.ToLower(strings.TrimSpace(req.Supervisor.NewEmail)),
			Credentials: strings.TrimSpace(req.Supervisor.NewCredentials),
			Status:      models.PendingSupervisorStatusPending,
		}
	}

	if err := s.repo.CreateRequest(ctx, placement, pending); err != nil {
		if errors.Is(err, repository.ErrDuplicateOpenPlacement) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an open placement")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create placement request")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionPlacementRequest, placement.ID, placement)
	s.invalidateDashboards(ctx)
	return placement, nil
}

// Approve moves a PENDING placement to APPROVED_PENDING_CHECKLIST. Only the
// linked faculty (or an admin) may approve. The onboarding artifacts need not
// exist yet; they gate the later Activate step.
func (s *PlacementService) Approve(ctx context.Context, placementID string, req dto.ApprovePlacementRequest, actor *models.JWTClaims) (*models.Placement, error) {
	placement, err := s.loadForFaculty(ctx, placementID, actor)
	if err != nil {
		return nil, err
	}

	next, ok := NextPlacementStatus(placement.Status, PlacementActionApprove)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement is not awaiting approval")
	}

	now := time.Now().UTC()
	notes := strings.TrimSpace(req.Notes)
	params := repository.UpdatePlacementStatusParams{
		ID:             placement.ID,
		ExpectedStatus: placement.Status,
		NewStatus:      next,
		ApprovedAt:     &now,
	}
	if notes != "" {
		params.ApprovalNotes = &notes
	}
	if err := s.repo.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve placement")
	}

	placement.Status = next
	placement.ApprovedAt = &now
	if notes != "" {
		placement.ApprovalNotes = &notes
	}
	s.metrics.RecordPlacementTransition(PlacementActionApprove)
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionPlacementApprove, placement.ID, placement)
	s.notify(ctx, placement, "approved", "")
	return placement, nil
}

// Reject terminates a PENDING placement. The reason is mandatory and the
// student is immediately free to submit a fresh request.
func (s *PlacementService) Reject(ctx context.Context, placementID string, req dto.RejectPlacementRequest, actor *models.JWTClaims) (*models.Placement, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	placement, err := s.loadForFaculty(ctx, placementID, actor)
	if err != nil {
		return nil, err
	}

	next, ok := NextPlacementStatus(placement.Status, PlacementActionReject)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement is not awaiting approval")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, repository.UpdatePlacementStatusParams{
		ID:              placement.ID,
		ExpectedStatus:  placement.Status,
		NewStatus:       next,
		RejectionReason: &reason,
		RejectedAt:      &now,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject placement")
	}

	placement.Status = next
	placement.RejectionReason = &reason
	placement.RejectedAt = &now
	s.metrics.RecordPlacementTransition(PlacementActionReject)
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionPlacementReject, placement.ID, placement)
	s.notify(ctx, placement, "rejected", reason)
	return placement, nil
}

// Activate performs the explicit transition to ACTIVE once every onboarding
// artifact is present. Reaching "all present" never auto-activates; this is
// always a deliberate faculty action.
func (s *PlacementService) Activate(ctx context.Context, placementID string, actor *models.JWTClaims) (*models.Placement, error) {
	placement, err := s.loadForFaculty(ctx, placementID, actor)
	if err != nil {
		return nil, err
	}

	next, ok := NextPlacementStatus(placement.Status, PlacementActionActivate)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement is not awaiting activation")
	}
	if !placement.ReadyForActivation() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "onboarding artifacts are incomplete")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, repository.UpdatePlacementStatusParams{
		ID:             placement.ID,
		ExpectedStatus: placement.Status,
		NewStatus:      next,
		ActivatedAt:    &now,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate placement")
	}

	placement.Status = next
	placement.ActivatedAt = &now
	s.metrics.RecordPlacementTransition(PlacementActionActivate)
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionPlacementActivate, placement.ID, placement)
	s.notify(ctx, placement, "activated", "")
	return placement, nil
}

// Archive closes an ACTIVE placement once the approved hours meet the
// requirement and the end date has passed. Both guards are evaluated fresh at
// decision time. Callable by the owning student or the linked faculty.
func (s *PlacementService) Archive(ctx context.Context, placementID string, actor *models.JWTClaims) (*models.ArchiveResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	placement, err := s.load(ctx, placementID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleStudent:
		if placement.StudentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "placement belongs to another student")
		}
	case models.RoleFaculty:
		if placement.FacultyID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "placement is assigned to another faculty member")
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	next, ok := NextPlacementStatus(placement.Status, PlacementActionArchive)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement is not active")
	}

	summary, err := s.hours.ComputeSummary(ctx, placement.ID)
	if err != nil {
		return nil, err
	}
	if summary.Approved < placement.RequiredHours {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "approved hours are below the placement requirement")
	}
	if time.Now().UTC().Before(placement.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "placement end date has not been reached")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, repository.UpdatePlacementStatusParams{
		ID:             placement.ID,
		ExpectedStatus: placement.Status,
		NewStatus:      next,
		ArchivedAt:     &now,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive placement")
	}

	placement.Status = next
	placement.ArchivedAt = &now

	otherActive, err := s.repo.CountActiveByStudent(ctx, placement.StudentID, placement.ID)
	if err != nil {
		s.logger.Warn("failed to count other active placements", zap.Error(err))
	}
	s.metrics.RecordPlacementTransition(PlacementActionArchive)
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionPlacementArchive, placement.ID, placement)
	return &models.ArchiveResult{Placement: placement, StudentHasOtherActive: otherActive > 0}, nil
}

// SetArtifactFlags updates the onboarding completion flags. This only changes
// what Activate is willing to accept; it never transitions anything.
func (s *PlacementService) SetArtifactFlags(ctx context.Context, placementID string, req dto.ArtifactFlagsRequest, actor *models.JWTClaims) (*models.ActivationReadiness, error) {
	placement, err := s.loadForFaculty(ctx, placementID, actor)
	if err != nil {
		return nil, err
	}
	if placement.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement is closed")
	}
	if err := s.repo.SetArtifactFlags(ctx, placement.ID, req.CellPolicy, req.LearningContract, req.Checklist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "placement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update artifact flags")
	}
	if req.CellPolicy != nil {
		placement.HasCellPolicy = *req.CellPolicy
	}
	if req.LearningContract != nil {
		placement.HasLearningContract = *req.LearningContract
	}
	if req.Checklist != nil {
		placement.HasChecklist = *req.Checklist
	}
	return readiness(placement), nil
}

// Readiness is the pure artifact-presence query backing the "ready for final
// approval" gate.
func (s *PlacementService) Readiness(ctx context.Context, placementID string, actor *models.JWTClaims) (*models.ActivationReadiness, error) {
	placement, err := s.loadForView(ctx, placementID, actor)
	if err != nil {
		return nil, err
	}
	return readiness(placement), nil
}

// Get returns a placement visible to the actor.
func (s *PlacementService) Get(ctx context.Context, placementID string, actor *models.JWTClaims) (*models.Placement, error) {
	return s.loadForView(ctx, placementID, actor)
}

// List returns placements scoped to the actor's role.
func (s *PlacementService) List(ctx context.Context, query dto.PlacementQuery, actor *models.JWTClaims) ([]models.Placement, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.PlacementFilter{
		StudentID: query.StudentID,
		SiteID:    query.SiteID,
		Status:    query.Status,
		ClassID:   query.ClassID,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		filter.FacultyID = actor.UserID
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	placements, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list placements")
	}
	return placements, nil
}

func (s *PlacementService) load(ctx context.Context, placementID string) (*models.Placement, error) {
	placement, err := s.repo.GetByID(ctx, placementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "placement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placement")
	}
	return placement, nil
}

// loadForFaculty loads a placement and verifies the actor is the linked
// faculty member or an admin. Role authority is always checked against the
// stored reference, never inferred from session state alone.
func (s *PlacementService) loadForFaculty(ctx context.Context, placementID string, actor *models.JWTClaims) (*models.Placement, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	placement, err := s.load(ctx, placementID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		if placement.FacultyID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "placement is assigned to another faculty member")
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	return placement, nil
}

func (s *PlacementService) loadForView(ctx context.Context, placementID string, actor *models.JWTClaims) (*models.Placement, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	placement, err := s.load(ctx, placementID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleSupervisor:
	case models.RoleFaculty:
		if placement.FacultyID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "placement is assigned to another faculty member")
		}
	case models.RoleStudent:
		if placement.StudentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "placement belongs to another student")
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	return placement, nil
}

func readiness(p *models.Placement) *models.ActivationReadiness {
	return &models.ActivationReadiness{
		PlacementID:         p.ID,
		HasCellPolicy:       p.HasCellPolicy,
		HasLearningContract: p.HasLearningContract,
		HasChecklist:        p.HasChecklist,
		Ready:               p.ReadyForActivation(),
	}
}

func (s *PlacementService) emitAudit(ctx context.Context, userID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(payload)
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "placement",
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "placement-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *PlacementService) notify(ctx context.Context, placement *models.Placement, action, reason string) {
	if s.notifier == nil {
		return
	}
	s.notifier.PlacementDecided(ctx, placement, action, reason)
}
