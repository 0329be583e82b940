package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
)

type backupRepoStub struct {
	backups   map[int64]models.Backup
	created   []models.Backup
	pruned    []int
	createErr error
}

func (s *backupRepoStub) List(ctx context.Context) ([]models.Backup, error) {
	result := make([]models.Backup, 0, len(s.backups))
	for _, backup := range s.backups {
		result = append(result, backup)
	}
	return result, nil
}

func (s *backupRepoStub) FindByID(ctx context.Context, id int64) (*models.Backup, error) {
	if backup, ok := s.backups[id]; ok {
		return &backup, nil
	}
	return nil, sql.ErrNoRows
}

func (s *backupRepoStub) CreateWithTx(ctx context.Context, tx *sqlx.Tx, backup *models.Backup) error {
	if s.createErr != nil {
		return s.createErr
	}
	backup.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *backup)
	return nil
}

func (s *backupRepoStub) PruneWithTx(ctx context.Context, tx *sqlx.Tx, maxCount int) (int64, error) {
	s.pruned = append(s.pruned, maxCount)
	return 0, nil
}

func TestBackupServiceCreate(t *testing.T) {
	db, mock, cleanup := newTxProviderMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	slots := []models.ScheduleSlot{
		{ID: 1, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
		{ID: 2, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusUrgent},
	}
	repo := &backupRepoStub{}
	svc := NewBackupService(repo, &slotRepoStub{slots: slots}, &replacerStub{}, db, nil, 5)

	backup, err := svc.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, backup.SlotCount)
	assert.Equal(t, []int{5}, repo.pruned)

	decoded, err := backup.Slots()
	require.NoError(t, err)
	assert.Len(t, decoded, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupServiceCreateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newTxProviderMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &backupRepoStub{createErr: errors.New("insert failed")}
	svc := NewBackupService(repo, &slotRepoStub{}, &replacerStub{}, db, nil, 5)

	_, err := svc.Create(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorageFailure.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupServiceRestore(t *testing.T) {
	slots := []models.ScheduleSlot{
		{ID: 7, Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), ActivityType: "feeding", Status: models.SlotStatusFree},
	}
	payload, err := models.NewBackupPayload(slots)
	require.NoError(t, err)

	repo := &backupRepoStub{backups: map[int64]models.Backup{
		3: {ID: 3, Payload: payload, SlotCount: 1},
	}}
	replacer := &replacerStub{}
	svc := NewBackupService(repo, &slotRepoStub{}, replacer, nil, nil, 5)

	restored, err := svc.Restore(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, int64(7), restored[0].ID)
	require.Len(t, replacer.replaced, 1)
}

func TestBackupServiceRestoreUnknownBackup(t *testing.T) {
	svc := NewBackupService(&backupRepoStub{}, &slotRepoStub{}, &replacerStub{}, nil, nil, 5)

	_, err := svc.Restore(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBackupServiceRestoreCorruptPayload(t *testing.T) {
	repo := &backupRepoStub{backups: map[int64]models.Backup{
		1: {ID: 1, Payload: []byte(`{"broken`)},
	}}
	svc := NewBackupService(repo, &slotRepoStub{}, &replacerStub{}, nil, nil, 5)

	_, err := svc.Restore(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
