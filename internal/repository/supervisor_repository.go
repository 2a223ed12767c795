package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldtrack/practicum-api/internal/models"
)

const pendingSupervisorColumns = `id, site_id, placement_id, full_name, email, credentials, status,
       rejection_reason, resolved_by, resolved_at, created_at`

// SupervisorRepository persists pending supervisors and supervisor profiles.
type SupervisorRepository struct {
	db *sqlx.DB
}

// NewSupervisorRepository constructs the repository.
func NewSupervisorRepository(db *sqlx.DB) *SupervisorRepository {
	return &SupervisorRepository{db: db}
}

// GetPendingByID fetches a pending supervisor by identifier.
func (r *SupervisorRepository) GetPendingByID(ctx context.Context, id string) (*models.PendingSupervisor, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_supervisors WHERE id = $1`, pendingSupervisorColumns)
	var pending models.PendingSupervisor
	if err := r.db.GetContext(ctx, &pending, query, id); err != nil {
		return nil, err
	}
	return &pending, nil
}

// GetPendingByPlacement fetches the pending supervisor originated by a placement.
func (r *SupervisorRepository) GetPendingByPlacement(ctx context.Context, placementID string) (*models.PendingSupervisor, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_supervisors WHERE placement_id = $1 ORDER BY created_at DESC LIMIT 1`, pendingSupervisorColumns)
	var pending models.PendingSupervisor
	if err := r.db.GetContext(ctx, &pending, query, placementID); err != nil {
		return nil, err
	}
	return &pending, nil
}

// ListPending returns unresolved pending supervisors (oldest first).
func (r *SupervisorRepository) ListPending(ctx context.Context) ([]models.PendingSupervisor, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_supervisors WHERE status = 'PENDING' ORDER BY created_at ASC`, pendingSupervisorColumns)
	var pending []models.PendingSupervisor
	if err := r.db.SelectContext(ctx, &pending, query); err != nil {
		return nil, fmt.Errorf("list pending supervisors: %w", err)
	}
	return pending, nil
}

// GetProfileByID fetches a supervisor profile by identifier.
func (r *SupervisorRepository) GetProfileByID(ctx context.Context, id string) (*models.SupervisorProfile, error) {
	const query = `SELECT id, user_id, site_id, credentials, approved, created_at, updated_at FROM supervisor_profiles WHERE id = $1`
	var profile models.SupervisorProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// PromoteParams carries everything needed to turn a pending supervisor into a
// first-class user + profile and relink the originating placement.
type PromoteParams struct {
	PendingID   string
	ResolvedBy  string
	ResolvedAt  time.Time
	User        *models.User
	Profile     *models.SupervisorProfile
	PlacementID string
}

// Promote approves a pending supervisor: creates the user credential and the
// supervisor profile, relinks the placement, and marks the pending row
// resolved, all in one transaction so a partial promotion can never commit.
// The status guard on the pending row makes racing resolutions lose with
// sql.ErrNoRows.
func (r *SupervisorRepository) Promote(ctx context.Context, params PromoteParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	const resolveQuery = `UPDATE pending_supervisors
	SET status = 'APPROVED', resolved_by = $2, resolved_at = $3
	WHERE id = $1 AND status = 'PENDING'`
	result, err := tx.ExecContext(ctx, resolveQuery, params.PendingID, params.ResolvedBy, params.ResolvedAt.UTC())
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("resolve pending supervisor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("check pending resolve rows: %w", err)
	}
	if rows == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}

	user := params.User
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const userQuery = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
	VALUES (:id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create supervisor user: %w", err)
	}

	profile := params.Profile
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.UserID = user.ID
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const profileQuery = `INSERT INTO supervisor_profiles (id, user_id, site_id, credentials, approved, created_at, updated_at)
	VALUES (:id, :user_id, :site_id, :credentials, :approved, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, profileQuery, profile); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create supervisor profile: %w", err)
	}

	const linkQuery = `UPDATE placements SET supervisor_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, linkQuery, params.PlacementID, profile.ID, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("link placement supervisor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit supervisor promotion: %w", err)
	}
	return nil
}

// RejectPending marks a pending supervisor rejected with the given reason.
// The PENDING status guard makes racing resolutions lose with sql.ErrNoRows.
func (r *SupervisorRepository) RejectPending(ctx context.Context, id, reason, resolvedBy string, resolvedAt time.Time) error {
	const query = `UPDATE pending_supervisors
	SET status = 'REJECTED', rejection_reason = $2, resolved_by = $3, resolved_at = $4
	WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, reason, resolvedBy, resolvedAt.UTC())
	if err != nil {
		return fmt.Errorf("reject pending supervisor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check pending reject rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
