package models

import "time"

// FeedingActivity is the only activity type that exposes self-service
// assign/unassign; all other activity types are administrator-edited.
const FeedingActivity = "feeding"

// Built-in activity type names used by auto-provisioning.
const (
	VegetableActivity = "vegetable_collection"
	MeetingActivity   = "meeting"
)

// ActivityType describes a kind of volunteer activity. Slots reference
// activity types by name, not by foreign key.
type ActivityType struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Color       string    `db:"color" json:"color"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
