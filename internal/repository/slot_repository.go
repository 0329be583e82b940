package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/willowdale/rota-api/internal/models"
)

const slotColumns = "id, date, time, activity_type, status, volunteer_name, volunteers, is_urgent_when_free, notes, description, created_at, updated_at"

// SlotRepository provides persistence for schedule slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// List returns slots ordered by date then time, with optional filtering.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.ScheduleSlot, error) {
	base := "SELECT " + slotColumns + " FROM schedule_slots WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ActivityType != "" {
		conditions = append(conditions, fmt.Sprintf("activity_type = $%d", len(args)+1))
		args = append(args, filter.ActivityType)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, time ASC NULLS LAST, id ASC"

	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	for i := range slots {
		slots[i].Normalize()
	}
	return slots, nil
}

// FindByID loads a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id int64) (*models.ScheduleSlot, error) {
	query := "SELECT " + slotColumns + " FROM schedule_slots WHERE id = $1"
	var slot models.ScheduleSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	slot.Normalize()
	return &slot, nil
}

// Count returns the number of stored slots.
func (r *SlotRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schedule_slots"); err != nil {
		return 0, fmt.Errorf("count slots: %w", err)
	}
	return total, nil
}

// MaxDate returns the latest slot date for an activity type, or nil when none exist.
func (r *SlotRepository) MaxDate(ctx context.Context, activityType string) (*time.Time, error) {
	var max *time.Time
	if err := r.db.GetContext(ctx, &max, "SELECT MAX(date) FROM schedule_slots WHERE activity_type = $1", activityType); err != nil {
		return nil, fmt.Errorf("max slot date: %w", err)
	}
	return max, nil
}

// Create stores a new slot and assigns its id and timestamps.
func (r *SlotRepository) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	slot.Normalize()

	const query = `INSERT INTO schedule_slots (date, time, activity_type, status, volunteer_name, volunteers, is_urgent_when_free, notes, description, created_at, updated_at)
		VALUES (:date, :time, :activity_type, :status, :volunteer_name, :volunteers, :is_urgent_when_free, :notes, :description, :created_at, :updated_at)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, slot)
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&slot.ID); err != nil {
			return fmt.Errorf("scan created slot id: %w", err)
		}
	}
	return rows.Err()
}

// Update modifies an existing slot. It reports whether a row was changed.
func (r *SlotRepository) Update(ctx context.Context, slot *models.ScheduleSlot) (bool, error) {
	slot.UpdatedAt = time.Now().UTC()
	slot.Normalize()

	const query = `UPDATE schedule_slots SET date = :date, time = :time, activity_type = :activity_type, status = :status, volunteer_name = :volunteer_name, volunteers = :volunteers, is_urgent_when_free = :is_urgent_when_free, notes = :notes, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		return false, fmt.Errorf("update slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update slot affected rows: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a slot by id. It reports whether a row was removed.
func (r *SlotRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM schedule_slots WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete slot affected rows: %w", err)
	}
	return affected > 0, nil
}

// BulkInsertWithTx inserts slots using an existing transaction, preserving
// carried ids so open references stay valid. Rows without an id receive a
// fresh one from the sequence.
func (r *SlotRepository) BulkInsertWithTx(ctx context.Context, tx *sqlx.Tx, slots []models.ScheduleSlot) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range slots {
		payload := slots[i]
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		payload.Normalize()

		if payload.ID > 0 {
			const query = `INSERT INTO schedule_slots (id, date, time, activity_type, status, volunteer_name, volunteers, is_urgent_when_free, notes, description, created_at, updated_at)
				VALUES (:id, :date, :time, :activity_type, :status, :volunteer_name, :volunteers, :is_urgent_when_free, :notes, :description, :created_at, :updated_at)`
			if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
				return fmt.Errorf("bulk insert slot %d: %w", payload.ID, err)
			}
		} else {
			const query = `INSERT INTO schedule_slots (date, time, activity_type, status, volunteer_name, volunteers, is_urgent_when_free, notes, description, created_at, updated_at)
				VALUES (:date, :time, :activity_type, :status, :volunteer_name, :volunteers, :is_urgent_when_free, :notes, :description, :created_at, :updated_at)
				RETURNING id`
			rows, err := sqlx.NamedQueryContext(ctx, tx, query, &payload)
			if err != nil {
				return fmt.Errorf("bulk insert slot: %w", err)
			}
			if rows.Next() {
				if err := rows.Scan(&payload.ID); err != nil {
					rows.Close() //nolint:errcheck
					return fmt.Errorf("scan bulk inserted slot id: %w", err)
				}
			}
			if err := rows.Close(); err != nil {
				return fmt.Errorf("close bulk insert rows: %w", err)
			}
		}
		slots[i] = payload
	}

	// Explicit-id inserts bypass the serial; realign it so future inserts
	// cannot collide with preserved ids.
	const resequence = `SELECT setval(pg_get_serial_sequence('schedule_slots', 'id'), GREATEST((SELECT COALESCE(MAX(id), 0) FROM schedule_slots), 1))`
	if _, err := tx.ExecContext(ctx, resequence); err != nil {
		return fmt.Errorf("resequence slot ids: %w", err)
	}
	return nil
}

// DeleteAllWithTx clears the schedule inside an existing transaction.
func (r *SlotRepository) DeleteAllWithTx(ctx context.Context, tx *sqlx.Tx) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_slots"); err != nil {
		return fmt.Errorf("delete all slots: %w", err)
	}
	return nil
}

// ListWithTx reads the full schedule inside an existing transaction, ordered
// by date then time. Used to snapshot the pre-replace state atomically.
func (r *SlotRepository) ListWithTx(ctx context.Context, tx *sqlx.Tx) ([]models.ScheduleSlot, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	query := "SELECT " + slotColumns + " FROM schedule_slots ORDER BY date ASC, time ASC NULLS LAST, id ASC"
	var slots []models.ScheduleSlot
	if err := tx.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list slots in tx: %w", err)
	}
	for i := range slots {
		slots[i].Normalize()
	}
	return slots, nil
}
