package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
)

// DateLayout is the wire format for slot dates.
const DateLayout = "2006-01-02"

type slotRepository interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.ScheduleSlot, error)
	FindByID(ctx context.Context, id int64) (*models.ScheduleSlot, error)
	Create(ctx context.Context, slot *models.ScheduleSlot) error
	Update(ctx context.Context, slot *models.ScheduleSlot) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListWithTx(ctx context.Context, tx *sqlx.Tx) ([]models.ScheduleSlot, error)
	DeleteAllWithTx(ctx context.Context, tx *sqlx.Tx) error
	BulkInsertWithTx(ctx context.Context, tx *sqlx.Tx, slots []models.ScheduleSlot) error
}

type backupWriter interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, backup *models.Backup) error
	PruneWithTx(ctx context.Context, tx *sqlx.Tx, maxCount int) (int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleServiceConfig tunes the calendar engine.
type ScheduleServiceConfig struct {
	WindowWeeks    int
	BackupMaxCount int
}

// ScheduleService owns the calendar engine: the rolling week view, single
// slot edits and the atomic bulk replace that backs the schedule editor.
type ScheduleService struct {
	slots     slotRepository
	backups   backupWriter
	tx        txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleServiceConfig
}

// NewScheduleService constructs the service.
func NewScheduleService(slots slotRepository, backups backupWriter, tx txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg ScheduleServiceConfig) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowWeeks <= 0 {
		cfg.WindowWeeks = models.DefaultWindowWeeks
	}
	if cfg.BackupMaxCount <= 0 {
		cfg.BackupMaxCount = 10
	}
	return &ScheduleService{slots: slots, backups: backups, tx: tx, cache: cache, validator: validate, logger: logger, cfg: cfg}
}

// SlotPayload is the wire representation of one slot in requests.
type SlotPayload struct {
	ID               int64    `json:"id"`
	Date             string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time             *string  `json:"time"`
	ActivityType     string   `json:"activity_type" validate:"required"`
	Status           string   `json:"status" validate:"omitempty,oneof=free assigned urgent"`
	VolunteerName    *string  `json:"volunteer_name"`
	Volunteers       []string `json:"volunteers"`
	IsUrgentWhenFree bool     `json:"is_urgent_when_free"`
	Notes            *string  `json:"notes"`
	Description      *string  `json:"description"`
}

// ReplaceScheduleRequest carries the full schedule for a bulk replace.
type ReplaceScheduleRequest struct {
	Slots []SlotPayload `json:"slots" validate:"dive"`
}

func (p SlotPayload) toModel() (models.ScheduleSlot, error) {
	date, err := time.ParseInLocation(DateLayout, p.Date, time.UTC)
	if err != nil {
		return models.ScheduleSlot{}, fmt.Errorf("parse slot date %q: %w", p.Date, err)
	}
	slot := models.ScheduleSlot{
		ID:               p.ID,
		Date:             date,
		Time:             p.Time,
		ActivityType:     p.ActivityType,
		Status:           models.SlotStatus(p.Status),
		VolunteerName:    p.VolunteerName,
		Volunteers:       models.VolunteerList(p.Volunteers),
		IsUrgentWhenFree: p.IsUrgentWhenFree,
		Notes:            p.Notes,
		Description:      p.Description,
	}
	slot.Normalize()
	return slot, nil
}

const weekViewCachePrefix = "schedule:weeks:"

func (s *ScheduleService) cacheKey(today time.Time) string {
	return weekViewCachePrefix + models.AnchorMonday(today).Format(DateLayout)
}

// WeekView returns the rolling window of calendar weeks for display.
func (s *ScheduleService) WeekView(ctx context.Context, today time.Time) ([]models.Week, error) {
	key := s.cacheKey(today)
	var cached []models.Week
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	slots, err := s.slots.List(ctx, models.SlotFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to load schedule")
	}
	weeks := models.GroupWeeks(slots, today, s.cfg.WindowWeeks)
	s.cache.Set(ctx, key, weeks, 0)
	return weeks, nil
}

// ListSlots returns the raw slot list ordered by date then time.
func (s *ScheduleService) ListSlots(ctx context.Context, filter models.SlotFilter) ([]models.ScheduleSlot, error) {
	slots, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to list slots")
	}
	return slots, nil
}

// GetSlot returns one slot by id.
func (s *ScheduleService) GetSlot(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to get slot")
	}
	return slot, nil
}

// CreateSlot stores a new slot from an admin edit.
func (s *ScheduleService) CreateSlot(ctx context.Context, req SlotPayload) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	req.ID = 0
	slot, err := req.toModel()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot date")
	}
	if err := slot.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := s.slots.Create(ctx, &slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to create slot")
	}
	s.invalidateView(ctx)
	return &slot, nil
}

// UpdateSlot performs a full-record admin edit of one slot.
func (s *ScheduleService) UpdateSlot(ctx context.Context, id int64, req SlotPayload) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	req.ID = id
	slot, err := req.toModel()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot date")
	}
	if err := slot.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	existing, err := s.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	slot.CreatedAt = existing.CreatedAt

	updated, err := s.slots.Update(ctx, &slot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to update slot")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	s.invalidateView(ctx)
	return &slot, nil
}

// DeleteSlot removes one slot.
func (s *ScheduleService) DeleteSlot(ctx context.Context, id int64) error {
	deleted, err := s.slots.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to delete slot")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	s.invalidateView(ctx)
	return nil
}

// ReplaceSchedule validates the incoming payload and atomically replaces the
// full schedule, snapshotting the prior state first.
func (s *ScheduleService) ReplaceSchedule(ctx context.Context, req ReplaceScheduleRequest) ([]models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	slots := make([]models.ScheduleSlot, 0, len(req.Slots))
	for i, payload := range req.Slots {
		slot, err := payload.toModel()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("slot %d: invalid date", i))
		}
		if err := slot.Validate(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("slot %d: %v", i, err))
		}
		slots = append(slots, slot)
	}
	return s.ReplaceAll(ctx, slots)
}

// ReplaceAll replaces the whole schedule in one transaction: snapshot the
// prior content, prune old snapshots, delete everything and reinsert. Rows
// carrying an id keep it; rows without one get a fresh id. Any failure rolls
// the transaction back, leaving the prior schedule intact.
func (s *ScheduleService) ReplaceAll(ctx context.Context, slots []models.ScheduleSlot) (result []models.ScheduleSlot, err error) {
	seen := make(map[int64]struct{}, len(slots))
	for _, slot := range slots {
		if slot.ID <= 0 {
			continue
		}
		if _, dup := seen[slot.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate slot id %d", slot.ID))
		}
		seen[slot.ID] = struct{}{}
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prior, err := s.slots.ListWithTx(ctx, tx)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to snapshot schedule")
		return nil, err
	}
	payload, marshalErr := models.NewBackupPayload(prior)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode snapshot")
		return nil, err
	}
	backup := &models.Backup{Payload: payload, SlotCount: len(prior)}
	if err = s.backups.CreateWithTx(ctx, tx, backup); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to store snapshot")
		return nil, err
	}
	if _, err = s.backups.PruneWithTx(ctx, tx, s.cfg.BackupMaxCount); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to prune snapshots")
		return nil, err
	}

	if err = s.slots.DeleteAllWithTx(ctx, tx); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to clear schedule")
		return nil, err
	}
	if err = s.slots.BulkInsertWithTx(ctx, tx, slots); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to insert schedule")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to commit schedule replace")
		return nil, err
	}

	s.logger.Info("schedule replaced",
		zap.Int("prior_slots", len(prior)),
		zap.Int("new_slots", len(slots)),
		zap.Int64("backup_id", backup.ID),
	)
	s.invalidateView(ctx)
	return slots, nil
}

// invalidateView drops every cached week view. Views are cached per anchor
// because the reference date is caller supplied, so a single-key delete
// would leave other anchors stale until their TTL.
func (s *ScheduleService) invalidateView(ctx context.Context) {
	s.cache.InvalidatePrefix(ctx, weekViewCachePrefix)
}
