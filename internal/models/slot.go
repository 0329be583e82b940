package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SlotStatus enumerates the assignment states of a schedule slot.
type SlotStatus string

const (
	SlotStatusFree     SlotStatus = "free"
	SlotStatusAssigned SlotStatus = "assigned"
	SlotStatusUrgent   SlotStatus = "urgent"
)

// Valid reports whether the value is one of the known states.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusFree, SlotStatusAssigned, SlotStatusUrgent:
		return true
	default:
		return false
	}
}

// VolunteerList is an ordered list of volunteer names stored as a JSON
// string column. Malformed stored payloads scan to an empty list instead of
// failing the whole row; corrupt legacy data must never block rendering.
type VolunteerList []string

// Scan implements sql.Scanner.
func (v *VolunteerList) Scan(src interface{}) error {
	var raw []byte
	switch t := src.(type) {
	case nil:
		*v = VolunteerList{}
		return nil
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		*v = VolunteerList{}
		return nil
	}
	if len(raw) == 0 {
		*v = VolunteerList{}
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		*v = VolunteerList{}
		return nil
	}
	*v = names
	return nil
}

// Value implements driver.Valuer.
func (v VolunteerList) Value() (driver.Value, error) {
	if v == nil {
		v = VolunteerList{}
	}
	payload, err := json.Marshal([]string(v))
	if err != nil {
		return nil, fmt.Errorf("marshal volunteer list: %w", err)
	}
	return string(payload), nil
}

// ScheduleSlot is one occurrence of an activity on a calendar date.
// DayOfWeek is derived from Date and is never persisted as independent truth.
type ScheduleSlot struct {
	ID               int64         `db:"id" json:"id"`
	Date             time.Time     `db:"date" json:"date"`
	Time             *string       `db:"time" json:"time,omitempty"`
	ActivityType     string        `db:"activity_type" json:"activity_type"`
	Status           SlotStatus    `db:"status" json:"status"`
	VolunteerName    *string       `db:"volunteer_name" json:"volunteer_name,omitempty"`
	Volunteers       VolunteerList `db:"volunteers" json:"volunteers"`
	IsUrgentWhenFree bool          `db:"is_urgent_when_free" json:"is_urgent_when_free"`
	Notes            *string       `db:"notes" json:"notes,omitempty"`
	Description      *string       `db:"description" json:"description,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// DayOfWeek returns the ISO weekday of a date, Monday=1 through Sunday=7.
func DayOfWeek(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DayOfWeek returns the slot's calendar column derived from its date.
func (s *ScheduleSlot) DayOfWeek() int {
	return DayOfWeek(s.Date)
}

// Validate checks the status/volunteer invariant and required fields.
func (s *ScheduleSlot) Validate() error {
	if s.Date.IsZero() {
		return fmt.Errorf("slot date is required")
	}
	if s.ActivityType == "" {
		return fmt.Errorf("slot activity type is required")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("unknown slot status %q", s.Status)
	}
	if s.Status == SlotStatusAssigned && (s.VolunteerName == nil || *s.VolunteerName == "") {
		return fmt.Errorf("assigned slot requires a volunteer name")
	}
	if s.Status != SlotStatusAssigned && s.VolunteerName != nil {
		return fmt.Errorf("%s slot must not carry a volunteer name", s.Status)
	}
	return nil
}

// Normalize repairs fields that storage cannot be trusted for: nil volunteer
// lists become empty and empty status defaults to free.
func (s *ScheduleSlot) Normalize() {
	if s.Volunteers == nil {
		s.Volunteers = VolunteerList{}
	}
	if s.Status == "" {
		s.Status = SlotStatusFree
	}
	if s.VolunteerName != nil && *s.VolunteerName == "" {
		s.VolunteerName = nil
	}
}

// ErrAlreadyAssigned is returned by Assign when the slot is held by someone else.
var ErrAlreadyAssigned = fmt.Errorf("slot is already assigned to another volunteer")

// Assign transitions a free or urgent slot to assigned. Re-assigning the
// current occupant is an idempotent no-op; a different occupant is rejected.
func (s *ScheduleSlot) Assign(volunteerName string) error {
	if volunteerName == "" {
		return fmt.Errorf("volunteer name is required")
	}
	if s.Status == SlotStatusAssigned {
		if s.VolunteerName != nil && *s.VolunteerName == volunteerName {
			return nil
		}
		return ErrAlreadyAssigned
	}
	s.Status = SlotStatusAssigned
	s.VolunteerName = &volunteerName
	if len(s.Volunteers) == 0 {
		s.Volunteers = VolunteerList{volunteerName}
	} else if s.Volunteers[len(s.Volunteers)-1] != volunteerName {
		s.Volunteers = append(s.Volunteers, volunteerName)
	}
	return nil
}

// Unassign clears the occupant. The slot falls back to urgent when flagged
// urgent-when-free, otherwise to free.
func (s *ScheduleSlot) Unassign() error {
	if s.Status != SlotStatusAssigned {
		return fmt.Errorf("cannot unassign a %s slot", s.Status)
	}
	if s.VolunteerName != nil && len(s.Volunteers) > 0 && s.Volunteers[len(s.Volunteers)-1] == *s.VolunteerName {
		s.Volunteers = s.Volunteers[:len(s.Volunteers)-1]
	}
	s.VolunteerName = nil
	if s.IsUrgentWhenFree {
		s.Status = SlotStatusUrgent
	} else {
		s.Status = SlotStatusFree
	}
	return nil
}

// SlotFilter narrows slot listing queries.
type SlotFilter struct {
	ActivityType string
	Status       SlotStatus
	From         *time.Time
	To           *time.Time
}
