package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
)

type slotRepoStub struct {
	slots       []models.ScheduleSlot
	listErr     error
	findErr     error
	created     []models.ScheduleSlot
	updated     []models.ScheduleSlot
	updateFound bool
	deleteFound bool

	bulkInserted  []models.ScheduleSlot
	bulkErr       error
	deletedAll    bool
	deleteAllErr  error
	listWithTxErr error
}

func (s *slotRepoStub) List(ctx context.Context, filter models.SlotFilter) ([]models.ScheduleSlot, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.slots, nil
}

func (s *slotRepoStub) FindByID(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, slot := range s.slots {
		if slot.ID == id {
			copied := slot
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *slotRepoStub) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	slot.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *slot)
	return nil
}

func (s *slotRepoStub) Update(ctx context.Context, slot *models.ScheduleSlot) (bool, error) {
	s.updated = append(s.updated, *slot)
	return s.updateFound, nil
}

func (s *slotRepoStub) Delete(ctx context.Context, id int64) (bool, error) {
	return s.deleteFound, nil
}

func (s *slotRepoStub) ListWithTx(ctx context.Context, tx *sqlx.Tx) ([]models.ScheduleSlot, error) {
	if s.listWithTxErr != nil {
		return nil, s.listWithTxErr
	}
	return s.slots, nil
}

func (s *slotRepoStub) DeleteAllWithTx(ctx context.Context, tx *sqlx.Tx) error {
	if s.deleteAllErr != nil {
		return s.deleteAllErr
	}
	s.deletedAll = true
	return nil
}

func (s *slotRepoStub) BulkInsertWithTx(ctx context.Context, tx *sqlx.Tx, slots []models.ScheduleSlot) error {
	if s.bulkErr != nil {
		return s.bulkErr
	}
	s.bulkInserted = slots
	return nil
}

type backupWriterStub struct {
	created   []models.Backup
	pruned    []int
	createErr error
}

func (s *backupWriterStub) CreateWithTx(ctx context.Context, tx *sqlx.Tx, backup *models.Backup) error {
	if s.createErr != nil {
		return s.createErr
	}
	backup.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *backup)
	return nil
}

func (s *backupWriterStub) PruneWithTx(ctx context.Context, tx *sqlx.Tx, maxCount int) (int64, error) {
	s.pruned = append(s.pruned, maxCount)
	return 0, nil
}

type cacheRepoStub struct {
	entries         map[string][]byte
	deleted         []string
	deletedPrefixes []string
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.entries == nil {
		s.entries = make(map[string][]byte)
	}
	s.entries[key] = []byte("set")
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.entries, key)
	return nil
}

func (s *cacheRepoStub) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.deletedPrefixes = append(s.deletedPrefixes, prefix)
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

// newTxProviderMock returns a sqlmock-backed DB usable as a transaction
// provider by services whose repositories are stubbed out.
func newTxProviderMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func noCache() *CacheService {
	return NewCacheService(nil, nil, 0, nil, false)
}

func validPayload(id int64) SlotPayload {
	return SlotPayload{
		ID:           id,
		Date:         "2024-06-03",
		ActivityType: models.FeedingActivity,
		Status:       "free",
	}
}

func TestScheduleServiceWeekView(t *testing.T) {
	repo := &slotRepoStub{slots: []models.ScheduleSlot{
		{ID: 1, Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), ActivityType: models.FeedingActivity, Status: models.SlotStatusFree},
	}}
	svc := NewScheduleService(repo, &backupWriterStub{}, nil, noCache(), nil, nil, ScheduleServiceConfig{WindowWeeks: 4})

	weeks, err := svc.WeekView(context.Background(), time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, weeks, 4)
	require.Len(t, weeks[0].Activities, 1)
	assert.Equal(t, models.FeedingActivity, weeks[0].Activities[0].ActivityType)
}

func TestScheduleServiceWeekViewPopulatesCache(t *testing.T) {
	cacheRepo := &cacheRepoStub{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	repo := &slotRepoStub{}
	svc := NewScheduleService(repo, &backupWriterStub{}, nil, cache, nil, nil, ScheduleServiceConfig{})

	_, err := svc.WeekView(context.Background(), time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.entries, "schedule:weeks:2024-06-03")
}

func TestScheduleServiceWritesInvalidateAllCachedAnchors(t *testing.T) {
	cacheRepo := &cacheRepoStub{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	repo := &slotRepoStub{}
	svc := NewScheduleService(repo, &backupWriterStub{}, nil, cache, nil, nil, ScheduleServiceConfig{})

	// The reference date is caller supplied, so views accumulate per anchor.
	_, err := svc.WeekView(context.Background(), time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = svc.WeekView(context.Background(), time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, cacheRepo.entries, 2)

	_, err = svc.CreateSlot(context.Background(), validPayload(0))
	require.NoError(t, err)

	// A write drops every cached anchor, not just the current one.
	assert.Contains(t, cacheRepo.deletedPrefixes, "schedule:weeks:")
	assert.Empty(t, cacheRepo.entries)
}

func TestScheduleServiceGetSlotNotFound(t *testing.T) {
	svc := NewScheduleService(&slotRepoStub{}, &backupWriterStub{}, nil, noCache(), nil, nil, ScheduleServiceConfig{})

	_, err := svc.GetSlot(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateSlotValidation(t *testing.T) {
	svc := NewScheduleService(&slotRepoStub{}, &backupWriterStub{}, nil, noCache(), nil, nil, ScheduleServiceConfig{})

	tests := []struct {
		name    string
		payload SlotPayload
	}{
		{"missing date", SlotPayload{ActivityType: "feeding"}},
		{"bad date format", SlotPayload{Date: "03/06/2024", ActivityType: "feeding"}},
		{"unknown status", SlotPayload{Date: "2024-06-03", ActivityType: "feeding", Status: "pending"}},
		{"assigned without volunteer", SlotPayload{Date: "2024-06-03", ActivityType: "feeding", Status: "assigned"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSlot(context.Background(), tt.payload)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestScheduleServiceCreateSlot(t *testing.T) {
	repo := &slotRepoStub{}
	svc := NewScheduleService(repo, &backupWriterStub{}, nil, noCache(), nil, nil, ScheduleServiceConfig{})

	slot, err := svc.CreateSlot(context.Background(), validPayload(99))
	require.NoError(t, err)
	// Client-supplied ids are ignored on create.
	assert.Equal(t, int64(1), slot.ID)
	require.Len(t, repo.created, 1)
}

func TestScheduleServiceUpdateSlotPreservesCreatedAt(t *testing.T) {
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &slotRepoStub{
		slots:       []models.ScheduleSlot{{ID: 1, Date: createdAt, ActivityType: "feeding", Status: models.SlotStatusFree, CreatedAt: createdAt}},
		updateFound: true,
	}
	svc := NewScheduleService(repo, &backupWriterStub{}, nil, noCache(), nil, nil, ScheduleServiceConfig{})

	slot, err := svc.UpdateSlot(context.Background(), 1, validPayload(0))
	require.NoError(t, err)
	assert.Equal(t, createdAt, slot.CreatedAt)
	assert.Equal(t, int64(1), slot.ID)
}

func TestScheduleServiceDeleteSlotNotFound(t *testing.T) {
	svc := NewScheduleService(&slotRepoStub{}, &backupWriterStub{}, nil, noCache(), nil, nil, ScheduleServiceConfig{})

	err := svc.DeleteSlot(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceReplaceAllSnapshotsThenReplaces(t *testing.T) {
	db, mock, cleanup := newTxProviderMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectCommit()

	prior := []models.ScheduleSlot{{ID: 1, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree}}
	repo := &slotRepoStub{slots: prior}
	backups := &backupWriterStub{}
	svc := NewScheduleService(repo, backups, db, noCache(), nil, nil, ScheduleServiceConfig{BackupMaxCount: 5})

	next := []models.ScheduleSlot{
		{ID: 1, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
		{Date: time.Now(), ActivityType: "meeting", Status: models.SlotStatusFree},
	}
	result, err := svc.ReplaceAll(context.Background(), next)
	require.NoError(t, err)
	assert.Len(t, result, 2)

	require.Len(t, backups.created, 1)
	assert.Equal(t, 1, backups.created[0].SlotCount)
	assert.Equal(t, []int{5}, backups.pruned)
	assert.True(t, repo.deletedAll)
	assert.Len(t, repo.bulkInserted, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceReplaceAllRejectsDuplicateIDs(t *testing.T) {
	svc := NewScheduleService(&slotRepoStub{}, &backupWriterStub{}, nil, noCache(), nil, nil, ScheduleServiceConfig{})

	slots := []models.ScheduleSlot{
		{ID: 2, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
		{ID: 2, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
	}
	_, err := svc.ReplaceAll(context.Background(), slots)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newTxProviderMock(t)
	defer cleanup()
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &slotRepoStub{bulkErr: errors.New("constraint violation")}
	svc := NewScheduleService(repo, &backupWriterStub{}, db, noCache(), nil, nil, ScheduleServiceConfig{})

	_, err := svc.ReplaceAll(context.Background(), []models.ScheduleSlot{
		{Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorageFailure.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceReplaceScheduleValidatesEachSlot(t *testing.T) {
	svc := NewScheduleService(&slotRepoStub{}, &backupWriterStub{}, nil, noCache(), nil, nil, ScheduleServiceConfig{})

	req := ReplaceScheduleRequest{Slots: []SlotPayload{
		validPayload(1),
		{Date: "not-a-date", ActivityType: "feeding"},
	}}
	_, err := svc.ReplaceSchedule(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
