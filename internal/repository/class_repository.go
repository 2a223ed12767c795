package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fieldtrack/practicum-api/internal/models"
)

// ClassRepository reads field class/term definitions.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// GetByID fetches a field class by identifier.
func (r *ClassRepository) GetByID(ctx context.Context, id string) (*models.FieldClass, error) {
	const query = `SELECT id, code, name, term, required_hours, faculty_id, created_at FROM field_classes WHERE id = $1`
	var class models.FieldClass
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// List returns every field class ordered by term then code.
func (r *ClassRepository) List(ctx context.Context) ([]models.FieldClass, error) {
	const query = `SELECT id, code, name, term, required_hours, faculty_id, created_at FROM field_classes ORDER BY term DESC, code ASC`
	var classes []models.FieldClass
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list field classes: %w", err)
	}
	return classes, nil
}
