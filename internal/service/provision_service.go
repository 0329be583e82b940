package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
)

type slotCounter interface {
	Count(ctx context.Context) (int, error)
	MaxDate(ctx context.Context, activityType string) (*time.Time, error)
	Create(ctx context.Context, slot *models.ScheduleSlot) error
}

type scheduleReplacer interface {
	ReplaceAll(ctx context.Context, slots []models.ScheduleSlot) ([]models.ScheduleSlot, error)
}

// ProvisionServiceConfig governs default generation and horizon upkeep.
type ProvisionServiceConfig struct {
	ProvisionWeeks int
	HorizonWeeks   int
}

// ProvisionService guarantees the schedule is never empty and that the
// rolling display window always has populated weeks. It runs on demand
// (startup and maintenance ticks), never as a resident process.
type ProvisionService struct {
	slots    slotCounter
	replacer scheduleReplacer
	logger   *zap.Logger
	cfg      ProvisionServiceConfig
}

// NewProvisionService constructs the service.
func NewProvisionService(slots slotCounter, replacer scheduleReplacer, logger *zap.Logger, cfg ProvisionServiceConfig) *ProvisionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProvisionWeeks <= 0 {
		cfg.ProvisionWeeks = 4
	}
	if cfg.HorizonWeeks <= 0 {
		cfg.HorizonWeeks = models.DefaultWindowWeeks
	}
	return &ProvisionService{slots: slots, replacer: replacer, logger: logger, cfg: cfg}
}

// Sample occupant used by the deterministic default schedule.
const sampleVolunteer = "Sample Volunteer"

func strPtr(s string) *string { return &s }

// BuildDefaultSchedule generates the deterministic multi-week default:
// daily feeding slots cycling free/assigned/urgent, one vegetable
// collection slot per week and one monthly meeting slot, all anchored at
// the Monday on or before the reference date.
func BuildDefaultSchedule(today time.Time, weeks int) []models.ScheduleSlot {
	if weeks <= 0 {
		weeks = 4
	}
	anchor := models.AnchorMonday(today)
	slots := make([]models.ScheduleSlot, 0, weeks*7+weeks+1)

	for w := 0; w < weeks; w++ {
		for d := 0; d < 7; d++ {
			idx := w*7 + d
			slot := models.ScheduleSlot{
				Date:             anchor.AddDate(0, 0, idx),
				Time:             strPtr("08:00"),
				ActivityType:     models.FeedingActivity,
				Status:           models.SlotStatusFree,
				Volunteers:       models.VolunteerList{},
				IsUrgentWhenFree: true,
				Description:      strPtr("Morning animal feeding"),
			}
			switch idx % 3 {
			case 1:
				slot.Status = models.SlotStatusAssigned
				slot.VolunteerName = strPtr(sampleVolunteer)
				slot.Volunteers = models.VolunteerList{sampleVolunteer}
			case 2:
				slot.Status = models.SlotStatusUrgent
			}
			slots = append(slots, slot)
		}

		// Vegetable collection every Saturday.
		slots = append(slots, models.ScheduleSlot{
			Date:         anchor.AddDate(0, 0, w*7+5),
			Time:         strPtr("10:00"),
			ActivityType: models.VegetableActivity,
			Status:       models.SlotStatusFree,
			Volunteers:   models.VolunteerList{},
			Description:  strPtr("Weekly vegetable collection"),
		})
	}

	// One monthly meeting inside the generated horizon, first Wednesday.
	slots = append(slots, models.ScheduleSlot{
		Date:         anchor.AddDate(0, 0, 2),
		Time:         strPtr("19:00"),
		ActivityType: models.MeetingActivity,
		Status:       models.SlotStatusFree,
		Volunteers:   models.VolunteerList{},
		Description:  strPtr("Monthly volunteer meeting"),
	})

	return slots
}

// InitializeScheduleIfEmpty seeds the default schedule once at cold start.
// It reports whether provisioning ran.
func (p *ProvisionService) InitializeScheduleIfEmpty(ctx context.Context, today time.Time) (bool, error) {
	total, err := p.slots.Count(ctx)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to inspect schedule")
	}
	if total > 0 {
		return false, nil
	}

	slots := BuildDefaultSchedule(today, p.cfg.ProvisionWeeks)
	if _, err := p.replacer.ReplaceAll(ctx, slots); err != nil {
		return false, err
	}
	p.logger.Info("default schedule provisioned",
		zap.Int("weeks", p.cfg.ProvisionWeeks),
		zap.Int("slots", len(slots)),
	)
	return true, nil
}

// AutoManageWeeks extends the schedule forward so the rolling window stays
// populated as real time advances. Re-running when the horizon is already
// sufficient is a no-op. It returns the number of slots added.
func (p *ProvisionService) AutoManageWeeks(ctx context.Context, today time.Time) (int, error) {
	anchor := models.AnchorMonday(today)
	horizonEnd := anchor.AddDate(0, 0, p.cfg.HorizonWeeks*7-1)

	maxDate, err := p.slots.MaxDate(ctx, models.FeedingActivity)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to inspect schedule horizon")
	}
	if maxDate == nil {
		// Nothing generated yet; cold-start provisioning owns that case.
		return 0, nil
	}
	if !maxDate.Before(horizonEnd) {
		return 0, nil
	}

	// Extend in whole weeks so the weekly vegetable slot keeps its rhythm.
	added := 0
	for weekStart := models.AnchorMonday(maxDate.AddDate(0, 0, 1)); weekStart.Before(horizonEnd); weekStart = weekStart.AddDate(0, 0, 7) {
		for d := 0; d < 7; d++ {
			date := weekStart.AddDate(0, 0, d)
			if !date.After(*maxDate) {
				continue
			}
			slot := models.ScheduleSlot{
				Date:             date,
				Time:             strPtr("08:00"),
				ActivityType:     models.FeedingActivity,
				Status:           models.SlotStatusFree,
				Volunteers:       models.VolunteerList{},
				IsUrgentWhenFree: true,
				Description:      strPtr("Morning animal feeding"),
			}
			if err := p.slots.Create(ctx, &slot); err != nil {
				return added, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to extend schedule")
			}
			added++

			if models.DayOfWeek(date) == 6 {
				veg := models.ScheduleSlot{
					Date:         date,
					Time:         strPtr("10:00"),
					ActivityType: models.VegetableActivity,
					Status:       models.SlotStatusFree,
					Volunteers:   models.VolunteerList{},
					Description:  strPtr("Weekly vegetable collection"),
				}
				if err := p.slots.Create(ctx, &veg); err != nil {
					return added, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to extend schedule")
				}
				added++
			}
		}
	}

	if added > 0 {
		p.logger.Info("schedule horizon extended",
			zap.Int("slots_added", added),
			zap.Time("horizon_end", horizonEnd),
		)
	}
	return added, nil
}
