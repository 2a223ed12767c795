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

const contractColumns = `id, site_id, token, status, recipient_name, recipient_email,
       director_name, agency_address, instructor_name, instructor_credentials, program_description,
       submitted_at, reviewed_at, reviewed_by, created_at, updated_at`

// LearningContractRepository persists agency learning contracts.
type LearningContractRepository struct {
	db *sqlx.DB
}

// NewLearningContractRepository constructs the repository.
func NewLearningContractRepository(db *sqlx.DB) *LearningContractRepository {
	return &LearningContractRepository{db: db}
}

// Create inserts a new contract.
func (r *LearningContractRepository) Create(ctx context.Context, contract *models.LearningContract) error {
	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = now
	}
	contract.UpdatedAt = now
	if contract.Status == "" {
		contract.Status = models.ContractStatusPending
	}
	const query = `INSERT INTO learning_contracts
	(id, site_id, token, status, recipient_name, recipient_email, created_at, updated_at)
	VALUES (:id, :site_id, :token, :status, :recipient_name, :recipient_email, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, contract); err != nil {
		return fmt.Errorf("create learning contract: %w", err)
	}
	return nil
}

// GetByID fetches a contract by identifier.
func (r *LearningContractRepository) GetByID(ctx context.Context, id string) (*models.LearningContract, error) {
	query := fmt.Sprintf(`SELECT %s FROM learning_contracts WHERE id = $1`, contractColumns)
	var contract models.LearningContract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetByToken fetches a contract by its capability token.
func (r *LearningContractRepository) GetByToken(ctx context.Context, token string) (*models.LearningContract, error) {
	query := fmt.Sprintf(`SELECT %s FROM learning_contracts WHERE token = $1`, contractColumns)
	var contract models.LearningContract
	if err := r.db.GetContext(ctx, &contract, query, token); err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetCurrentBySite returns the newest contract for a site.
func (r *LearningContractRepository) GetCurrentBySite(ctx context.Context, siteID string) (*models.LearningContract, error) {
	query := fmt.Sprintf(`SELECT %s FROM learning_contracts WHERE site_id = $1 ORDER BY created_at DESC LIMIT 1`, contractColumns)
	var contract models.LearningContract
	if err := r.db.GetContext(ctx, &contract, query, siteID); err != nil {
		return nil, err
	}
	return &contract, nil
}

// CountByStatus returns contract counts grouped by status.
func (r *LearningContractRepository) CountByStatus(ctx context.Context) (map[models.ContractStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM learning_contracts GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count contracts by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ContractStatus]int)
	for rows.Next() {
		var row struct {
			Status models.ContractStatus `db:"status"`
			Count  int                   `db:"count"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan contract count: %w", err)
		}
		counts[row.Status] = row.Count
	}
	return counts, rows.Err()
}

// UpdateContractStatusParams groups the columns written by a workflow step.
type UpdateContractStatusParams struct {
	ID             string
	ExpectedStatus models.ContractStatus
	NewStatus      models.ContractStatus

	// Agency submission fields, written on SENT -> SUBMITTED.
	DirectorName          *string
	AgencyAddress         *string
	InstructorName        *string
	InstructorCredentials *string
	ProgramDescription    *string
	SubmittedAt           *time.Time

	// Review fields, written on SUBMITTED -> APPROVED/REJECTED.
	ReviewedBy *string
	ReviewedAt *time.Time
}

// UpdateStatus performs a compare-and-swap on the contract status. The token
// column is never touched after issuance.
func (r *LearningContractRepository) UpdateStatus(ctx context.Context, params UpdateContractStatusParams) error {
	setParts := []string{"status = :new_status", "updated_at = :updated_at"}
	if params.DirectorName != nil {
		setParts = append(setParts,
			"director_name = :director_name",
			"agency_address = :agency_address",
			"instructor_name = :instructor_name",
			"instructor_credentials = :instructor_credentials",
			"program_description = :program_description",
			"submitted_at = :submitted_at",
		)
	}
	if params.ReviewedBy != nil {
		setParts = append(setParts, "reviewed_by = :reviewed_by", "reviewed_at = :reviewed_at")
	}
	query := fmt.Sprintf("UPDATE learning_contracts SET %s WHERE id = :id AND status = :expected_status", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                     params.ID,
		"expected_status":        params.ExpectedStatus,
		"new_status":             params.NewStatus,
		"director_name":          params.DirectorName,
		"agency_address":         params.AgencyAddress,
		"instructor_name":        params.InstructorName,
		"instructor_credentials": params.InstructorCredentials,
		"program_description":    params.ProgramDescription,
		"submitted_at":           params.SubmittedAt,
		"reviewed_by":            params.ReviewedBy,
		"reviewed_at":            params.ReviewedAt,
		"updated_at":             time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update contract status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check contract update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
