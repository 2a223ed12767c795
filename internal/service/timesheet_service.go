package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/internal/repository"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

type timesheetStore interface {
	Create(ctx context.Context, entry *models.TimesheetEntry) error
	GetByID(ctx context.Context, id string) (*models.TimesheetEntry, error)
	List(ctx context.Context, filter models.TimesheetFilter) ([]models.TimesheetEntry, error)
	UpdateDraft(ctx context.Context, entry *models.TimesheetEntry) error
	SubmitWeek(ctx context.Context, placementID string, weekStart, weekEnd time.Time, submittedAt time.Time) ([]models.TimesheetEntry, error)
	UpdateStatus(ctx context.Context, params repository.UpdateTimesheetStatusParams) error
}

type timesheetPlacementStore interface {
	GetByID(ctx context.Context, id string) (*models.Placement, error)
}

type timesheetNotifier interface {
	WeekSubmitted(ctx context.Context, placement *models.Placement, entries []models.TimesheetEntry)
	EntryDecided(ctx context.Context, placement *models.Placement, entry *models.TimesheetEntry, stage string)
}

// TimesheetService owns hour logging and the two-stage approval workflow.
// Supervisor review always precedes faculty review; an entry never reaches
// faculty without a supervisor approval behind it.
type TimesheetService struct {
	repo        timesheetStore
	placements  timesheetPlacementStore
	supervisors supervisorProfileStore
	audit       auditLogger
	notifier    timesheetNotifier
	metrics     *MetricsService
	dashboards  dashboardInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// WithMetrics attaches review counters. Safe to skip in tests.
func (s *TimesheetService) WithMetrics(metrics *MetricsService) *TimesheetService {
	s.metrics = metrics
	return s
}

// WithDashboards drops cached dashboard counts after each review or
// submission. Safe to skip in tests.
func (s *TimesheetService) WithDashboards(dashboards dashboardInvalidator) *TimesheetService {
	s.dashboards = dashboards
	return s
}

func (s *TimesheetService) invalidateDashboards(ctx context.Context) {
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}
}

func NewTimesheetService(
	repo timesheetStore,
	placements timesheetPlacementStore,
	supervisors supervisorProfileStore,
	audit auditLogger,
	notifier timesheetNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimesheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TimesheetService{
		repo:        repo,
		placements:  placements,
		supervisors: supervisors,
		audit:       audit,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
}

// LogHours creates a DRAFT entry on an active placement. The placement must
// have an approved supervisor on file before any hours can accumulate.
func (s *TimesheetService) LogHours(ctx context.Context, req dto.LogHoursRequest, actor *models.JWTClaims) (*models.TimesheetEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hours entry")
	}
	if err := validateHours(req.Hours); err != nil {
		return nil, err
	}
	if !models.ValidHourCategory(req.Category) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown hour category")
	}

	placement, err := s.loadOwnedPlacement(ctx, req.PlacementID, actor)
	if err != nil {
		return nil, err
	}
	// Supervisor check comes first: a placement still waiting on supervisor
	// resolution reports the missing supervisor, not its lifecycle status.
	if err := s.requireApprovedSupervisor(ctx, placement); err != nil {
		return nil, err
	}
	if placement.Status != models.PlacementStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement is not active")
	}
	if req.EntryDate.Before(placement.StartDate) || req.EntryDate.After(placement.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry date falls outside the placement period")
	}

	entry := &models.TimesheetEntry{
		PlacementID: placement.ID,
		StudentID:   actor.UserID,
		EntryDate:   req.EntryDate,
		Hours:       req.Hours,
		Category:    req.Category,
		Notes:       strings.TrimSpace(req.Notes),
		Status:      models.TimesheetStatusDraft,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timesheet entry")
	}
	return entry, nil
}

// UpdateEntry edits a draft or rejected entry. Editing a rejected entry
// returns it to DRAFT so the next week submission picks it up again. Locked
// entries are immutable.
func (s *TimesheetService) UpdateEntry(ctx context.Context, entryID string, req dto.UpdateEntryRequest, actor *models.JWTClaims) (*models.TimesheetEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	entry, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.StudentID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "entry belongs to another student")
	}
	if entry.Locked {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "approved entries are locked")
	}
	if !entry.Editable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "entry is under review and cannot be edited")
	}

	if req.Hours != nil {
		if err := validateHours(*req.Hours); err != nil {
			return nil, err
		}
		entry.Hours = *req.Hours
	}
	if req.Category != nil {
		if !models.ValidHourCategory(*req.Category) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown hour category")
		}
		entry.Category = *req.Category
	}
	if req.Notes != nil {
		entry.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.EntryDate != nil {
		placement, err := s.placements.GetByID(ctx, entry.PlacementID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placement")
		}
		if req.EntryDate.Before(placement.StartDate) || req.EntryDate.After(placement.EndDate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "entry date falls outside the placement period")
		}
		entry.EntryDate = *req.EntryDate
	}

	if err := s.repo.UpdateDraft(ctx, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "entry is no longer editable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timesheet entry")
	}
	entry.Status = models.TimesheetStatusDraft
	entry.RejectionReason = nil
	return entry, nil
}

// SubmitWeek moves every draft entry in the window to PENDING_SUPERVISOR in a
// single statement. Submitting a window with no drafts is a harmless no-op,
// which also makes retries idempotent.
func (s *TimesheetService) SubmitWeek(ctx context.Context, req dto.SubmitWeekRequest, actor *models.JWTClaims) ([]models.TimesheetEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week submission")
	}
	if req.WeekEnd.Before(req.WeekStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week end must not precede week start")
	}
	// Dates are midnight-aligned and the repository window is inclusive on
	// both ends, so a seven-day week spans at most start plus six days.
	if req.WeekEnd.Sub(req.WeekStart) > 6*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission window may not exceed seven days")
	}

	placement, err := s.loadOwnedPlacement(ctx, req.PlacementID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.requireApprovedSupervisor(ctx, placement); err != nil {
		return nil, err
	}
	if placement.Status != models.PlacementStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "placement is not active")
	}

	now := time.Now().UTC()
	entries, err := s.repo.SubmitWeek(ctx, placement.ID, req.WeekStart, req.WeekEnd, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit week")
	}
	if len(entries) > 0 {
		s.emitAudit(ctx, actor.UserID, models.AuditActionWeekSubmit, placement.ID, entries)
		s.invalidateDashboards(ctx)
		if s.notifier != nil {
			s.notifier.WeekSubmitted(ctx, placement, entries)
		}
	}
	return entries, nil
}

// ApproveEntry advances an entry one review stage. Supervisors move
// PENDING_SUPERVISOR to PENDING_FACULTY; faculty move PENDING_FACULTY to
// APPROVED and lock the entry. The lock and the APPROVED status are written
// together so neither is ever observable without the other.
func (s *TimesheetService) ApproveEntry(ctx context.Context, entryID string, actor *models.JWTClaims) (*models.TimesheetEntry, error) {
	entry, placement, action, err := s.loadForReview(ctx, entryID, actor)
	if err != nil {
		return nil, err
	}

	next, ok := NextTimesheetStatus(entry.Status, action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "entry is not awaiting this review stage")
	}

	now := time.Now().UTC()
	params := repository.UpdateTimesheetStatusParams{
		ID:              entry.ID,
		ExpectedStatus:  entry.Status,
		NewStatus:       next,
		Locked:          next == models.TimesheetStatusApproved,
		ApproverID:      actor.UserID,
		ApprovedAt:      now,
		SupervisorStage: action == TimesheetActionSupervisorApprove,
	}
	if err := s.repo.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "entry already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve entry")
	}

	entry.Status = next
	entry.Locked = params.Locked
	if params.SupervisorStage {
		entry.SupervisorApprovedBy = &actor.UserID
		entry.SupervisorApprovedAt = &now
	} else {
		entry.FacultyApprovedBy = &actor.UserID
		entry.FacultyApprovedAt = &now
	}
	s.metrics.RecordTimesheetReview(stageLabel(params.SupervisorStage), "approved")
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionEntryApprove, entry.ID, entry)
	if s.notifier != nil {
		s.notifier.EntryDecided(ctx, placement, entry, stageLabel(params.SupervisorStage))
	}
	return entry, nil
}

// RejectEntry terminates the current review with a mandatory reason. The
// entry returns to the student, who edits it back into DRAFT and resubmits.
func (s *TimesheetService) RejectEntry(ctx context.Context, entryID string, req dto.RejectEntryRequest, actor *models.JWTClaims) (*models.TimesheetEntry, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	entry, placement, action, err := s.loadForReview(ctx, entryID, actor)
	if err != nil {
		return nil, err
	}
	switch action {
	case TimesheetActionSupervisorApprove:
		action = TimesheetActionSupervisorReject
	case TimesheetActionFacultyApprove:
		action = TimesheetActionFacultyReject
	}

	next, ok := NextTimesheetStatus(entry.Status, action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "entry is not awaiting this review stage")
	}

	now := time.Now().UTC()
	params := repository.UpdateTimesheetStatusParams{
		ID:              entry.ID,
		ExpectedStatus:  entry.Status,
		NewStatus:       next,
		ApproverID:      actor.UserID,
		ApprovedAt:      now,
		SupervisorStage: action == TimesheetActionSupervisorReject,
		RejectionReason: &reason,
	}
	if err := s.repo.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "entry already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject entry")
	}

	entry.Status = next
	entry.RejectionReason = &reason
	s.metrics.RecordTimesheetReview(stageLabel(params.SupervisorStage), "rejected")
	s.invalidateDashboards(ctx)
	s.emitAudit(ctx, actor.UserID, models.AuditActionEntryReject, entry.ID, entry)
	if s.notifier != nil {
		s.notifier.EntryDecided(ctx, placement, entry, stageLabel(params.SupervisorStage))
	}
	return entry, nil
}

// Get returns an entry visible to the actor.
func (s *TimesheetService) Get(ctx context.Context, entryID string, actor *models.JWTClaims) (*models.TimesheetEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	entry, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent && entry.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "entry belongs to another student")
	}
	return entry, nil
}

// List returns entries scoped to the actor's role.
func (s *TimesheetService) List(ctx context.Context, query dto.TimesheetQuery, actor *models.JWTClaims) ([]models.TimesheetEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.TimesheetFilter{
		PlacementID: query.PlacementID,
		From:        query.From,
		To:          query.To,
		Limit:       query.Limit,
		Offset:      query.Offset,
	}
	if query.Status != "" {
		filter.Status = []models.TimesheetStatus{models.TimesheetStatus(query.Status)}
	}
	if actor.Role == models.RoleStudent {
		filter.StudentID = actor.UserID
	} else {
		filter.StudentID = query.StudentID
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timesheet entries")
	}
	return entries, nil
}

func (s *TimesheetService) loadEntry(ctx context.Context, entryID string) (*models.TimesheetEntry, error) {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timesheet entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timesheet entry")
	}
	return entry, nil
}

func (s *TimesheetService) loadOwnedPlacement(ctx context.Context, placementID string, actor *models.JWTClaims) (*models.Placement, error) {
	placement, err := s.placements.GetByID(ctx, placementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "placement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placement")
	}
	if actor.Role != models.RoleAdmin && placement.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "placement belongs to another student")
	}
	return placement, nil
}

// requireApprovedSupervisor checks the supervisor on file is fully approved,
// not merely referenced. A placement holding only a pending supervisor cannot
// accumulate or submit hours.
func (s *TimesheetService) requireApprovedSupervisor(ctx context.Context, placement *models.Placement) error {
	if placement.SupervisorID == nil {
		return appErrors.ErrSupervisorNotAssigned
	}
	profile, err := s.supervisors.GetProfileByID(ctx, *placement.SupervisorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrSupervisorNotAssigned
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor profile")
	}
	if !profile.Approved {
		return appErrors.ErrSupervisorNotAssigned
	}
	return nil
}

// loadForReview resolves the entry, its placement, and the review action the
// actor is entitled to perform. Identity is checked against the placement's
// stored supervisor and faculty references.
func (s *TimesheetService) loadForReview(ctx context.Context, entryID string, actor *models.JWTClaims) (*models.TimesheetEntry, *models.Placement, TimesheetAction, error) {
	if actor == nil {
		return nil, nil, "", appErrors.ErrUnauthorized
	}
	entry, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, nil, "", err
	}
	placement, err := s.placements.GetByID(ctx, entry.PlacementID)
	if err != nil {
		return nil, nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placement")
	}

	switch actor.Role {
	case models.RoleSupervisor:
		if placement.SupervisorID == nil {
			return nil, nil, "", appErrors.ErrSupervisorNotAssigned
		}
		profile, err := s.supervisors.GetProfileByID(ctx, *placement.SupervisorID)
		if err != nil {
			return nil, nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor profile")
		}
		if profile.UserID != actor.UserID {
			return nil, nil, "", appErrors.Clone(appErrors.ErrForbidden, "entry is assigned to another supervisor")
		}
		if !profile.Approved {
			return nil, nil, "", appErrors.ErrSupervisorNotAssigned
		}
		return entry, placement, TimesheetActionSupervisorApprove, nil
	case models.RoleFaculty:
		if placement.FacultyID != actor.UserID {
			return nil, nil, "", appErrors.Clone(appErrors.ErrForbidden, "entry is assigned to another faculty member")
		}
		return entry, placement, TimesheetActionFacultyApprove, nil
	case models.RoleAdmin:
		// Admins stand in for whichever stage the entry is waiting on. The
		// supervisor stage still requires a resolved, approved supervisor on
		// the placement so the stage is never skipped past provisioning.
		switch entry.Status {
		case models.TimesheetStatusPendingSupervisor:
			if err := s.requireApprovedSupervisor(ctx, placement); err != nil {
				return nil, nil, "", err
			}
			return entry, placement, TimesheetActionSupervisorApprove, nil
		case models.TimesheetStatusPendingFaculty:
			return entry, placement, TimesheetActionFacultyApprove, nil
		default:
			return nil, nil, "", appErrors.Clone(appErrors.ErrInvalidState, "entry is not awaiting review")
		}
	default:
		return nil, nil, "", appErrors.ErrForbidden
	}
}

func (s *TimesheetService) emitAudit(ctx context.Context, userID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(payload)
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "timesheet",
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "timesheet-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// validateHours enforces the 0 < h <= 24 range at one decimal of precision.
func validateHours(h float64) error {
	if h <= 0 || h > 24 {
		return appErrors.Clone(appErrors.ErrValidation, "hours must be greater than zero and at most 24")
	}
	if math.Abs(h*10-math.Round(h*10)) > 1e-9 {
		return appErrors.Clone(appErrors.ErrValidation, "hours may carry at most one decimal place")
	}
	return nil
}

func stageLabel(supervisor bool) string {
	if supervisor {
		return "supervisor"
	}
	return "faculty"
}
