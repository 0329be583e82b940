package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/willowdale/rota-api/internal/models"
)

// ActivityRepository provides persistence for activity types.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new activity type repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// List returns all activity types ordered by name.
func (r *ActivityRepository) List(ctx context.Context) ([]models.ActivityType, error) {
	const query = `SELECT id, name, description, color, created_at, updated_at FROM activity_types ORDER BY name ASC`
	var activities []models.ActivityType
	if err := r.db.SelectContext(ctx, &activities, query); err != nil {
		return nil, fmt.Errorf("list activity types: %w", err)
	}
	return activities, nil
}

// FindByName loads an activity type by its unique name.
func (r *ActivityRepository) FindByName(ctx context.Context, name string) (*models.ActivityType, error) {
	const query = `SELECT id, name, description, color, created_at, updated_at FROM activity_types WHERE name = $1`
	var activity models.ActivityType
	if err := r.db.GetContext(ctx, &activity, query, name); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Create stores a new activity type.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.ActivityType) error {
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	const query = `INSERT INTO activity_types (name, description, color, created_at, updated_at)
		VALUES (:name, :description, :color, :created_at, :updated_at)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, activity)
	if err != nil {
		return fmt.Errorf("create activity type: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&activity.ID); err != nil {
			return fmt.Errorf("scan created activity type id: %w", err)
		}
	}
	return rows.Err()
}
