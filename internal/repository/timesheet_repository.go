package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldtrack/practicum-api/internal/models"
)

const timesheetColumns = `id, placement_id, student_id, entry_date, hours, category, notes, status, locked,
       submitted_at, supervisor_approved_at, supervisor_approved_by,
       faculty_approved_at, faculty_approved_by, rejection_reason, created_at, updated_at`

// TimesheetRepository persists timesheet entries.
type TimesheetRepository struct {
	db *sqlx.DB
}

// NewTimesheetRepository constructs the repository.
func NewTimesheetRepository(db *sqlx.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// Create inserts a new draft entry.
func (r *TimesheetRepository) Create(ctx context.Context, entry *models.TimesheetEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = models.TimesheetStatusDraft
	}
	const query = `INSERT INTO timesheet_entries
	(id, placement_id, student_id, entry_date, hours, category, notes, status, locked, created_at, updated_at)
	VALUES (:id, :placement_id, :student_id, :entry_date, :hours, :category, :notes, :status, :locked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create timesheet entry: %w", err)
	}
	return nil
}

// GetByID fetches an entry by identifier.
func (r *TimesheetRepository) GetByID(ctx context.Context, id string) (*models.TimesheetEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timesheet_entries WHERE id = $1`, timesheetColumns)
	var entry models.TimesheetEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns entries matching the filter ordered by entry date.
func (r *TimesheetRepository) List(ctx context.Context, filter models.TimesheetFilter) ([]models.TimesheetEntry, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM timesheet_entries", timesheetColumns))

	conditions := make([]string, 0, 4)
	if filter.PlacementID != "" {
		args = append(args, filter.PlacementID)
		conditions = append(conditions, fmt.Sprintf("placement_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("entry_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("entry_date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY entry_date ASC, created_at ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var entries []models.TimesheetEntry
	if err := r.db.SelectContext(ctx, &entries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list timesheet entries: %w", err)
	}
	return entries, nil
}

// UpdateDraft rewrites an editable entry. The write only lands while the row
// is still unlocked and in DRAFT or REJECTED; edited rejected entries return
// to DRAFT. A concurrent submission makes the guard fail with sql.ErrNoRows.
func (r *TimesheetRepository) UpdateDraft(ctx context.Context, entry *models.TimesheetEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timesheet_entries
	SET entry_date = :entry_date, hours = :hours, category = :category, notes = :notes,
	    status = 'DRAFT', rejection_reason = NULL, updated_at = :updated_at
	WHERE id = :id AND locked = FALSE AND status IN ('DRAFT', 'REJECTED')`
	result, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("update timesheet entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check timesheet update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	entry.Status = models.TimesheetStatusDraft
	entry.RejectionReason = nil
	return nil
}

// SubmitWeek atomically moves every DRAFT entry in the window to
// PENDING_SUPERVISOR and returns the affected rows. Zero matching drafts is
// a no-op, not an error, which makes double submission idempotent.
func (r *TimesheetRepository) SubmitWeek(ctx context.Context, placementID string, weekStart, weekEnd, submittedAt time.Time) ([]models.TimesheetEntry, error) {
	query := fmt.Sprintf(`UPDATE timesheet_entries
	SET status = 'PENDING_SUPERVISOR', submitted_at = $4, rejection_reason = NULL, updated_at = $4
	WHERE placement_id = $1 AND status = 'DRAFT' AND entry_date >= $2 AND entry_date <= $3
	RETURNING %s`, timesheetColumns)

	rows, err := r.db.QueryxContext(ctx, query, placementID, weekStart, weekEnd, submittedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("submit week: %w", err)
	}
	defer rows.Close()

	var entries []models.TimesheetEntry
	for rows.Next() {
		var entry models.TimesheetEntry
		if err := rows.StructScan(&entry); err != nil {
			return nil, fmt.Errorf("scan submitted entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpdateTimesheetStatusParams groups the columns written by an approval stage.
type UpdateTimesheetStatusParams struct {
	ID              string
	ExpectedStatus  models.TimesheetStatus
	NewStatus       models.TimesheetStatus
	Locked          bool
	ApproverID      string
	ApprovedAt      time.Time
	SupervisorStage bool
	RejectionReason *string
}

// UpdateStatus performs a compare-and-swap on the status column, stamping the
// acting approver on the appropriate stage. A stale expected status affects
// zero rows and surfaces as sql.ErrNoRows.
func (r *TimesheetRepository) UpdateStatus(ctx context.Context, params UpdateTimesheetStatusParams) error {
	setParts := []string{"status = :new_status", "locked = :locked", "updated_at = :updated_at"}
	if params.RejectionReason != nil {
		setParts = append(setParts, "rejection_reason = :rejection_reason")
	} else if params.SupervisorStage {
		setParts = append(setParts, "supervisor_approved_at = :approved_at", "supervisor_approved_by = :approver_id")
	} else {
		setParts = append(setParts, "faculty_approved_at = :approved_at", "faculty_approved_by = :approver_id")
	}
	query := fmt.Sprintf("UPDATE timesheet_entries SET %s WHERE id = :id AND status = :expected_status", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               params.ID,
		"expected_status":  params.ExpectedStatus,
		"new_status":       params.NewStatus,
		"locked":           params.Locked,
		"approver_id":      params.ApproverID,
		"approved_at":      params.ApprovedAt.UTC(),
		"rejection_reason": params.RejectionReason,
		"updated_at":       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update timesheet status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check timesheet status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SumHoursByStatus returns total logged hours per status for one placement.
// Always computed from rows so the aggregate can never drift.
func (r *TimesheetRepository) SumHoursByStatus(ctx context.Context, placementID string) (map[models.TimesheetStatus]float64, error) {
	const query = `SELECT status, COALESCE(SUM(hours), 0) AS total FROM timesheet_entries WHERE placement_id = $1 GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query, placementID)
	if err != nil {
		return nil, fmt.Errorf("sum hours by status: %w", err)
	}
	defer rows.Close()

	totals := make(map[models.TimesheetStatus]float64)
	for rows.Next() {
		var row struct {
			Status models.TimesheetStatus `db:"status"`
			Total  float64                `db:"total"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan hour total: %w", err)
		}
		totals[row.Status] = row.Total
	}
	return totals, rows.Err()
}

// CountByStatus returns entry counts grouped by status across placements.
func (r *TimesheetRepository) CountByStatus(ctx context.Context) (map[models.TimesheetStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM timesheet_entries GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count entries by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TimesheetStatus]int)
	for rows.Next() {
		var row struct {
			Status models.TimesheetStatus `db:"status"`
			Count  int                    `db:"count"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan entry count: %w", err)
		}
		counts[row.Status] = row.Count
	}
	return counts, rows.Err()
}

// SumApprovedHours returns the total APPROVED hours across all placements.
func (r *TimesheetRepository) SumApprovedHours(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(hours), 0) FROM timesheet_entries WHERE status = 'APPROVED'`
	var total float64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("sum approved hours: %w", err)
	}
	return total, nil
}
