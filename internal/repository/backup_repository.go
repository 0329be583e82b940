package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/willowdale/rota-api/internal/models"
)

// BackupRepository provides persistence for schedule snapshots.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository creates a new backup repository.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// List returns snapshot metadata newest-first. Payloads are left out; they
// can be large and listing only drives the restore picker.
func (r *BackupRepository) List(ctx context.Context) ([]models.Backup, error) {
	const query = `SELECT id, '{}'::jsonb AS payload, slot_count, created_at FROM schedule_backups ORDER BY created_at DESC, id DESC`
	var backups []models.Backup
	if err := r.db.SelectContext(ctx, &backups, query); err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return backups, nil
}

// FindByID loads a full snapshot including its payload.
func (r *BackupRepository) FindByID(ctx context.Context, id int64) (*models.Backup, error) {
	const query = `SELECT id, payload, slot_count, created_at FROM schedule_backups WHERE id = $1`
	var backup models.Backup
	if err := r.db.GetContext(ctx, &backup, query, id); err != nil {
		return nil, err
	}
	return &backup, nil
}

// CreateWithTx stores a snapshot inside an existing transaction so the
// backup and the destructive operation it guards commit together.
func (r *BackupRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, backup *models.Backup) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	backup.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO schedule_backups (payload, slot_count, created_at)
		VALUES (:payload, :slot_count, :created_at)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, tx, query, backup)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&backup.ID); err != nil {
			return fmt.Errorf("scan created backup id: %w", err)
		}
	}
	return rows.Err()
}

// PruneWithTx deletes the oldest snapshots beyond maxCount, keeping storage
// bounded. It returns the number of snapshots removed.
func (r *BackupRepository) PruneWithTx(ctx context.Context, tx *sqlx.Tx, maxCount int) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("nil transaction provided")
	}
	if maxCount <= 0 {
		return 0, nil
	}
	const query = `DELETE FROM schedule_backups WHERE id NOT IN (
		SELECT id FROM schedule_backups ORDER BY created_at DESC, id DESC LIMIT $1
	)`
	res, err := tx.ExecContext(ctx, query, maxCount)
	if err != nil {
		return 0, fmt.Errorf("prune backups: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune backups affected rows: %w", err)
	}
	return removed, nil
}

// Count returns the number of retained snapshots.
func (r *BackupRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schedule_backups"); err != nil {
		return 0, fmt.Errorf("count backups: %w", err)
	}
	return total, nil
}
