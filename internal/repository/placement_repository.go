package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldtrack/practicum-api/internal/models"
)

// ErrDuplicateOpenPlacement is returned when a student already holds a
// placement in a non-terminal status.
var ErrDuplicateOpenPlacement = errors.New("student already has an open placement")

const placementColumns = `id, student_id, site_id, supervisor_id, class_id, faculty_id, start_date, end_date,
       required_hours, status, approval_notes, rejection_reason,
       has_cell_policy, has_learning_contract, has_checklist,
       created_at, approved_at, rejected_at, activated_at, archived_at, updated_at`

// PlacementRepository persists placement lifecycle data.
type PlacementRepository struct {
	db *sqlx.DB
}

// NewPlacementRepository constructs the repository.
func NewPlacementRepository(db *sqlx.DB) *PlacementRepository {
	return &PlacementRepository{db: db}
}

// CreateRequest inserts a placement request, atomically with its pending
// supervisor when one is named. The one-open-placement-per-student invariant
// is checked inside the same transaction.
func (r *PlacementRepository) CreateRequest(ctx context.Context, placement *models.Placement, pending *models.PendingSupervisor) error {
	if placement.ID == "" {
		placement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if placement.CreatedAt.IsZero() {
		placement.CreatedAt = now
	}
	placement.UpdatedAt = now
	if placement.Status == "" {
		placement.Status = models.PlacementStatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	var open int
	const countQuery = `SELECT COUNT(*) FROM placements WHERE student_id = $1 AND status IN ('PENDING', 'APPROVED_PENDING_CHECKLIST', 'ACTIVE')`
	if err := tx.GetContext(ctx, &open, countQuery, placement.StudentID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("count open placements: %w", err)
	}
	if open > 0 {
		tx.Rollback() //nolint:errcheck
		return ErrDuplicateOpenPlacement
	}

	const insertQuery = `INSERT INTO placements
	(id, student_id, site_id, supervisor_id, class_id, faculty_id, start_date, end_date, required_hours, status,
	 has_cell_policy, has_learning_contract, has_checklist, created_at, updated_at)
	VALUES (:id, :student_id, :site_id, :supervisor_id, :class_id, :faculty_id, :start_date, :end_date, :required_hours, :status,
	 :has_cell_policy, :has_learning_contract, :has_checklist, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, placement); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("create placement: %w", err)
	}

	if pending != nil {
		if pending.ID == "" {
			pending.ID = uuid.NewString()
		}
		pending.PlacementID = placement.ID
		if pending.Status == "" {
			pending.Status = models.PendingSupervisorStatusPending
		}
		if pending.CreatedAt.IsZero() {
			pending.CreatedAt = now
		}
		const pendingQuery = `INSERT INTO pending_supervisors
		(id, site_id, placement_id, full_name, email, credentials, status, created_at)
		VALUES (:id, :site_id, :placement_id, :full_name, :email, :credentials, :status, :created_at)`
		if _, err := tx.NamedExecContext(ctx, pendingQuery, pending); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("create pending supervisor: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit placement request: %w", err)
	}
	return nil
}

// GetByID fetches a placement by identifier.
func (r *PlacementRepository) GetByID(ctx context.Context, id string) (*models.Placement, error) {
	query := fmt.Sprintf(`SELECT %s FROM placements WHERE id = $1`, placementColumns)
	var placement models.Placement
	if err := r.db.GetContext(ctx, &placement, query, id); err != nil {
		return nil, err
	}
	return &placement, nil
}

// List returns placements matching the filter (newest first).
func (r *PlacementRepository) List(ctx context.Context, filter models.PlacementFilter) ([]models.Placement, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM placements", placementColumns))

	conditions := make([]string, 0, 4)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		conditions = append(conditions, fmt.Sprintf("site_id = $%d", len(args)))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var placements []models.Placement
	if err := r.db.SelectContext(ctx, &placements, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	return placements, nil
}

// UpdatePlacementStatusParams groups the columns written by a transition.
type UpdatePlacementStatusParams struct {
	ID              string
	ExpectedStatus  models.PlacementStatus
	NewStatus       models.PlacementStatus
	ApprovalNotes   *string
	RejectionReason *string
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	ActivatedAt     *time.Time
	ArchivedAt      *time.Time
}

// UpdateStatus performs a compare-and-swap on the status column. A stale
// expected status affects zero rows and surfaces as sql.ErrNoRows so that
// exactly one of two racing transitions can win.
func (r *PlacementRepository) UpdateStatus(ctx context.Context, params UpdatePlacementStatusParams) error {
	setParts := []string{"status = :new_status", "updated_at = :updated_at"}
	if params.ApprovalNotes != nil {
		setParts = append(setParts, "approval_notes = :approval_notes")
	}
	if params.RejectionReason != nil {
		setParts = append(setParts, "rejection_reason = :rejection_reason")
	}
	if params.ApprovedAt != nil {
		setParts = append(setParts, "approved_at = :approved_at")
	}
	if params.RejectedAt != nil {
		setParts = append(setParts, "rejected_at = :rejected_at")
	}
	if params.ActivatedAt != nil {
		setParts = append(setParts, "activated_at = :activated_at")
	}
	if params.ArchivedAt != nil {
		setParts = append(setParts, "archived_at = :archived_at")
	}
	query := fmt.Sprintf("UPDATE placements SET %s WHERE id = :id AND status = :expected_status", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               params.ID,
		"expected_status":  params.ExpectedStatus,
		"new_status":       params.NewStatus,
		"approval_notes":   params.ApprovalNotes,
		"rejection_reason": params.RejectionReason,
		"approved_at":      params.ApprovedAt,
		"rejected_at":      params.RejectedAt,
		"activated_at":     params.ActivatedAt,
		"archived_at":      params.ArchivedAt,
		"updated_at":       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update placement status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check placement update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetArtifactFlags updates the onboarding artifact completion flags. Nil
// pointers leave the corresponding flag untouched.
func (r *PlacementRepository) SetArtifactFlags(ctx context.Context, id string, cellPolicy, learningContract, checklist *bool) error {
	setParts := []string{"updated_at = :updated_at"}
	if cellPolicy != nil {
		setParts = append(setParts, "has_cell_policy = :has_cell_policy")
	}
	if learningContract != nil {
		setParts = append(setParts, "has_learning_contract = :has_learning_contract")
	}
	if checklist != nil {
		setParts = append(setParts, "has_checklist = :has_checklist")
	}
	query := fmt.Sprintf("UPDATE placements SET %s WHERE id = :id", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                    id,
		"has_cell_policy":       cellPolicy,
		"has_learning_contract": learningContract,
		"has_checklist":         checklist,
		"updated_at":            time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("set artifact flags: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check artifact update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateSupervisor rewrites the supervisor link (nil clears it).
func (r *PlacementRepository) UpdateSupervisor(ctx context.Context, placementID string, supervisorID *string) error {
	const query = `UPDATE placements SET supervisor_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, placementID, supervisorID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update placement supervisor: %w", err)
	}
	return nil
}

// CountActiveByStudent counts ACTIVE placements for a student, optionally
// excluding one placement (used for the post-archive navigation flag).
func (r *PlacementRepository) CountActiveByStudent(ctx context.Context, studentID, excludeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM placements WHERE student_id = $1 AND status = 'ACTIVE' AND id <> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, excludeID); err != nil {
		return 0, fmt.Errorf("count active placements: %w", err)
	}
	return count, nil
}

// CountByStatus returns placement counts grouped by stored status.
func (r *PlacementRepository) CountByStatus(ctx context.Context) (map[models.PlacementStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM placements GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count placements by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.PlacementStatus]int)
	for rows.Next() {
		var row struct {
			Status models.PlacementStatus `db:"status"`
			Count  int                    `db:"count"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan placement count: %w", err)
		}
		counts[row.Status] = row.Count
	}
	return counts, rows.Err()
}
