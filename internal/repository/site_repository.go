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

const siteColumns = `id, name, address, city, state, contact_name, contact_email, contact_phone,
       requires_contract, active, created_at, updated_at`

// SiteRepository persists agency sites.
type SiteRepository struct {
	db *sqlx.DB
}

// NewSiteRepository constructs the repository.
func NewSiteRepository(db *sqlx.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// Create inserts a new site.
func (r *SiteRepository) Create(ctx context.Context, site *models.Site) error {
	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if site.CreatedAt.IsZero() {
		site.CreatedAt = now
	}
	site.UpdatedAt = now
	const query = `INSERT INTO sites
	(id, name, address, city, state, contact_name, contact_email, contact_phone, requires_contract, active, created_at, updated_at)
	VALUES (:id, :name, :address, :city, :state, :contact_name, :contact_email, :contact_phone, :requires_contract, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, site); err != nil {
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

// GetByID fetches a site by identifier.
func (r *SiteRepository) GetByID(ctx context.Context, id string) (*models.Site, error) {
	query := fmt.Sprintf(`SELECT %s FROM sites WHERE id = $1`, siteColumns)
	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, id); err != nil {
		return nil, err
	}
	return &site, nil
}

// List returns sites matching the filter.
func (r *SiteRepository) List(ctx context.Context, filter models.SiteFilter) ([]models.Site, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 2)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM sites", siteColumns))

	conditions := make([]string, 0, 2)
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(city) LIKE $%d)", len(args), len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY name ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var sites []models.Site
	if err := r.db.SelectContext(ctx, &sites, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

// Activate flips an inactive site to active. Activating an already active
// site affects zero rows and surfaces as sql.ErrNoRows.
func (r *SiteRepository) Activate(ctx context.Context, id string) error {
	const query = `UPDATE sites SET active = TRUE, updated_at = $2 WHERE id = $1 AND active = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("activate site: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check site activate rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByActive returns site counts keyed by the active flag.
func (r *SiteRepository) CountByActive(ctx context.Context) (active, inactive int, err error) {
	const query = `SELECT active, COUNT(*) AS count FROM sites GROUP BY active`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return 0, 0, fmt.Errorf("count sites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row struct {
			Active bool `db:"active"`
			Count  int  `db:"count"`
		}
		if err := rows.StructScan(&row); err != nil {
			return 0, 0, fmt.Errorf("scan site count: %w", err)
		}
		if row.Active {
			active = row.Count
		} else {
			inactive = row.Count
		}
	}
	return active, inactive, rows.Err()
}
