package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/willowdale/rota-api/internal/models"
)

// VolunteerRepository provides persistence for volunteers.
type VolunteerRepository struct {
	db *sqlx.DB
}

// NewVolunteerRepository creates a new volunteer repository.
func NewVolunteerRepository(db *sqlx.DB) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

// List returns all volunteers ordered by name.
func (r *VolunteerRepository) List(ctx context.Context) ([]models.Volunteer, error) {
	const query = `SELECT id, name, is_admin, created_at, updated_at FROM volunteers ORDER BY name ASC`
	var volunteers []models.Volunteer
	if err := r.db.SelectContext(ctx, &volunteers, query); err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	return volunteers, nil
}

// FindByName loads a volunteer by its identity name.
func (r *VolunteerRepository) FindByName(ctx context.Context, name string) (*models.Volunteer, error) {
	const query = `SELECT id, name, is_admin, created_at, updated_at FROM volunteers WHERE name = $1`
	var volunteer models.Volunteer
	if err := r.db.GetContext(ctx, &volunteer, query, name); err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// Create stores a new volunteer.
func (r *VolunteerRepository) Create(ctx context.Context, volunteer *models.Volunteer) error {
	now := time.Now().UTC()
	volunteer.CreatedAt = now
	volunteer.UpdatedAt = now

	const query = `INSERT INTO volunteers (name, is_admin, created_at, updated_at)
		VALUES (:name, :is_admin, :created_at, :updated_at)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, volunteer)
	if err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&volunteer.ID); err != nil {
			return fmt.Errorf("scan created volunteer id: %w", err)
		}
	}
	return rows.Err()
}
