package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Backup is an immutable point-in-time snapshot of the full schedule.
// Payload holds the serialized slot list exactly as it stood at creation.
type Backup struct {
	ID        int64     `db:"id" json:"id"`
	Payload   []byte    `db:"payload" json:"-"`
	SlotCount int       `db:"slot_count" json:"slot_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Slots decodes the snapshot payload.
func (b *Backup) Slots() ([]ScheduleSlot, error) {
	var slots []ScheduleSlot
	if err := json.Unmarshal(b.Payload, &slots); err != nil {
		return nil, fmt.Errorf("decode backup %d payload: %w", b.ID, err)
	}
	return slots, nil
}

// NewBackupPayload encodes the slot list for snapshot storage.
func NewBackupPayload(slots []ScheduleSlot) ([]byte, error) {
	if slots == nil {
		slots = []ScheduleSlot{}
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("encode backup payload: %w", err)
	}
	return payload, nil
}
