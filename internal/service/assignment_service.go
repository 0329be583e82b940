package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
)

type slotAccessor interface {
	FindByID(ctx context.Context, id int64) (*models.ScheduleSlot, error)
	Update(ctx context.Context, slot *models.ScheduleSlot) (bool, error)
}

// AssignmentService runs the free/assigned/urgent state machine for
// self-service volunteer signup. Only feeding slots are open to it; every
// other activity type is edited as a full record by administrators.
type AssignmentService struct {
	slots     slotAccessor
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(slots slotAccessor, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{slots: slots, cache: cache, validator: validate, logger: logger}
}

// AssignRequest carries the signup payload. The volunteer name is trusted
// as supplied by the client; there is no account system.
type AssignRequest struct {
	VolunteerName string `json:"volunteer_name" validate:"required"`
}

// Assign transitions a free or urgent feeding slot to assigned.
func (s *AssignmentService) Assign(ctx context.Context, slotID int64, req AssignRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "volunteer_name is required")
	}

	slot, err := s.loadFeedingSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if err := slot.Assign(req.VolunteerName); err != nil {
		if errors.Is(err, models.ErrAlreadyAssigned) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "slot is already taken by another volunteer")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	return s.persist(ctx, slot, "slot assigned", req.VolunteerName)
}

// Unassign releases an assigned feeding slot. The slot falls back to urgent
// when it is flagged urgent-when-free, otherwise to free.
func (s *AssignmentService) Unassign(ctx context.Context, slotID int64) (*models.ScheduleSlot, error) {
	slot, err := s.loadFeedingSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}

	released := ""
	if slot.VolunteerName != nil {
		released = *slot.VolunteerName
	}
	if err := slot.Unassign(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	return s.persist(ctx, slot, "slot released", released)
}

func (s *AssignmentService) loadFeedingSlot(ctx context.Context, slotID int64) (*models.ScheduleSlot, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to load slot")
	}
	if slot.ActivityType != models.FeedingActivity {
		return nil, appErrors.Clone(appErrors.ErrValidation, "self-service signup is limited to feeding slots")
	}
	return slot, nil
}

func (s *AssignmentService) persist(ctx context.Context, slot *models.ScheduleSlot, action, volunteer string) (*models.ScheduleSlot, error) {
	updated, err := s.slots.Update(ctx, slot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to persist assignment")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	s.cache.InvalidatePrefix(ctx, weekViewCachePrefix)
	s.logger.Info(action,
		zap.Int64("slot_id", slot.ID),
		zap.String("volunteer", volunteer),
		zap.String("status", string(slot.Status)),
	)
	return slot, nil
}
