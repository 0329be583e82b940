package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
)

type backupRepository interface {
	List(ctx context.Context) ([]models.Backup, error)
	FindByID(ctx context.Context, id int64) (*models.Backup, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, backup *models.Backup) error
	PruneWithTx(ctx context.Context, tx *sqlx.Tx, maxCount int) (int64, error)
}

type slotSnapshotter interface {
	ListWithTx(ctx context.Context, tx *sqlx.Tx) ([]models.ScheduleSlot, error)
}

// BackupService maintains the bounded history of schedule snapshots and
// drives restores. A restore is itself preceded by a fresh snapshot inside
// the replace transaction, so restores are undoable.
type BackupService struct {
	backups  backupRepository
	slots    slotSnapshotter
	replacer scheduleReplacer
	tx       txProvider
	logger   *zap.Logger
	maxCount int
}

// NewBackupService constructs the service.
func NewBackupService(backups backupRepository, slots slotSnapshotter, replacer scheduleReplacer, tx txProvider, logger *zap.Logger, maxCount int) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxCount <= 0 {
		maxCount = 10
	}
	return &BackupService{backups: backups, slots: slots, replacer: replacer, tx: tx, logger: logger, maxCount: maxCount}
}

// List returns snapshot metadata, newest first.
func (s *BackupService) List(ctx context.Context) ([]models.Backup, error) {
	backups, err := s.backups.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to list backups")
	}
	return backups, nil
}

// Create snapshots the current schedule on demand and prunes history beyond
// the retention bound, both inside one transaction.
func (s *BackupService) Create(ctx context.Context) (backup *models.Backup, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	slots, err := s.slots.ListWithTx(ctx, tx)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to read schedule")
		return nil, err
	}
	payload, marshalErr := models.NewBackupPayload(slots)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode snapshot")
		return nil, err
	}

	backup = &models.Backup{Payload: payload, SlotCount: len(slots)}
	if err = s.backups.CreateWithTx(ctx, tx, backup); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to store snapshot")
		return nil, err
	}
	if _, err = s.backups.PruneWithTx(ctx, tx, s.maxCount); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to prune snapshots")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to commit backup")
		return nil, err
	}

	s.logger.Info("backup created", zap.Int64("backup_id", backup.ID), zap.Int("slots", backup.SlotCount))
	return backup, nil
}

// Restore replaces the live schedule with a snapshot's contents. The bulk
// replace snapshots the pre-restore state first, so the restore can be
// undone by restoring that newer backup.
func (s *BackupService) Restore(ctx context.Context, id int64) ([]models.ScheduleSlot, error) {
	backup, err := s.backups.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "backup not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to load backup")
	}

	slots, err := backup.Slots()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode backup")
	}

	restored, err := s.replacer.ReplaceAll(ctx, slots)
	if err != nil {
		return nil, err
	}
	s.logger.Info("backup restored", zap.Int64("backup_id", id), zap.Int("slots", len(restored)))
	return restored, nil
}
