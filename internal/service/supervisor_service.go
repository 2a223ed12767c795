package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/internal/repository"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

type pendingSupervisorStore interface {
	GetPendingByID(ctx context.Context, id string) (*models.PendingSupervisor, error)
	GetPendingByPlacement(ctx context.Context, placementID string) (*models.PendingSupervisor, error)
	ListPending(ctx context.Context) ([]models.PendingSupervisor, error)
	GetProfileByID(ctx context.Context, id string) (*models.SupervisorProfile, error)
	Promote(ctx context.Context, params repository.PromoteParams) error
	RejectPending(ctx context.Context, id, reason, resolvedBy string, resolvedAt time.Time) error
}

type supervisorUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type supervisorNotifier interface {
	SupervisorProvisioned(ctx context.Context, user *models.User, tempPassword string)
	SupervisorRejected(ctx context.Context, pending *models.PendingSupervisor, reason string)
}

// SupervisorService resolves pending supervisors created by placement
// requests. Approval promotes the pending record into a real user account and
// an approved profile; rejection closes it with a reason.
type SupervisorService struct {
	repo     pendingSupervisorStore
	users    supervisorUserStore
	audit    auditLogger
	notifier supervisorNotifier
	logger   *zap.Logger
}

func NewSupervisorService(
	repo pendingSupervisorStore,
	users supervisorUserStore,
	audit auditLogger,
	notifier supervisorNotifier,
	logger *zap.Logger,
) *SupervisorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupervisorService{
		repo:     repo,
		users:    users,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// ListPending returns unresolved supervisor records, oldest first.
func (s *SupervisorService) ListPending(ctx context.Context, actor *models.JWTClaims) ([]models.PendingSupervisor, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending supervisors")
	}
	return pending, nil
}

// GetPending returns a single pending supervisor record.
func (s *SupervisorService) GetPending(ctx context.Context, id string, actor *models.JWTClaims) (*models.PendingSupervisor, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	return s.loadPending(ctx, id)
}

// Resolve applies a faculty decision to a pending supervisor. Approval runs
// the full promotion in one transaction; the losing side of a concurrent
// double-resolve gets an invalid state error.
func (s *SupervisorService) Resolve(ctx context.Context, id string, req dto.ResolvePendingSupervisorRequest, actor *models.JWTClaims) (*dto.ResolvePendingSupervisorResult, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	pending, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	if pending.Status != models.PendingSupervisorStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "pending supervisor already resolved")
	}

	switch models.SupervisorDecision(strings.ToUpper(string(req.Decision))) {
	case models.SupervisorDecisionApprove:
		return s.approve(ctx, pending, actor)
	case models.SupervisorDecisionReject:
		return s.reject(ctx, pending, strings.TrimSpace(req.Reason), actor)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVE or REJECT")
	}
}

func (s *SupervisorService) approve(ctx context.Context, pending *models.PendingSupervisor, actor *models.JWTClaims) (*dto.ResolvePendingSupervisorResult, error) {
	if existing, err := s.users.FindByEmail(ctx, pending.Email); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a user with this email already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing user")
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credentials")
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        pending.Email,
		PasswordHash: string(hash),
		FullName:     pending.FullName,
		Role:         models.RoleSupervisor,
		Active:       true,
	}
	profile := &models.SupervisorProfile{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		SiteID:      pending.SiteID,
		Credentials: pending.Credentials,
		Approved:    true,
	}

	err = s.repo.Promote(ctx, repository.PromoteParams{
		PendingID:   pending.ID,
		ResolvedBy:  actor.UserID,
		ResolvedAt:  now,
		User:        user,
		Profile:     profile,
		PlacementID: pending.PlacementID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "pending supervisor already resolved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote supervisor")
	}

	pending.Status = models.PendingSupervisorStatusApproved
	pending.ResolvedBy = &actor.UserID
	pending.ResolvedAt = &now
	s.emitAudit(ctx, actor.UserID, pending.ID, pending)
	if s.notifier != nil {
		s.notifier.SupervisorProvisioned(ctx, user, tempPassword)
	}
	return &dto.ResolvePendingSupervisorResult{Supervisor: profile, Pending: pending}, nil
}

func (s *SupervisorService) reject(ctx context.Context, pending *models.PendingSupervisor, reason string, actor *models.JWTClaims) (*dto.ResolvePendingSupervisorResult, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	now := time.Now().UTC()
	if err := s.repo.RejectPending(ctx, pending.ID, reason, actor.UserID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "pending supervisor already resolved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject pending supervisor")
	}

	pending.Status = models.PendingSupervisorStatusRejected
	pending.RejectionReason = &reason
	pending.ResolvedBy = &actor.UserID
	pending.ResolvedAt = &now
	s.emitAudit(ctx, actor.UserID, pending.ID, pending)
	if s.notifier != nil {
		s.notifier.SupervisorRejected(ctx, pending, reason)
	}
	return &dto.ResolvePendingSupervisorResult{Pending: pending}, nil
}

func (s *SupervisorService) loadPending(ctx context.Context, id string) (*models.PendingSupervisor, error) {
	pending, err := s.repo.GetPendingByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pending supervisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending supervisor")
	}
	return pending, nil
}

func (s *SupervisorService) emitAudit(ctx context.Context, userID, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(payload)
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionSupervisorResolve,
		Resource:   "pending_supervisor",
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "supervisor-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func requireReviewer(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleFaculty && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	return nil
}

func generateTempPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
