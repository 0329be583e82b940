package models

import (
	"sort"
	"time"
)

// DefaultWindowWeeks is the size of the rolling display window.
const DefaultWindowWeeks = 6

// civilDate normalizes an instant to its calendar day at UTC midnight.
// Truncate is epoch-relative and shifts the day for zoned inputs, so the
// anchor math works on the wall-clock date instead.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AnchorMonday returns the Monday on or before the given date.
func AnchorMonday(today time.Time) time.Time {
	today = civilDate(today)
	wd := DayOfWeek(today)
	return today.AddDate(0, 0, -(wd - 1))
}

// ActivityGroup holds one activity's slots within a week, positioned by day column.
type ActivityGroup struct {
	ActivityType string         `json:"activity_type"`
	Slots        []ScheduleSlot `json:"slots"`
}

// Week is one calendar week bucket of the rolling window.
type Week struct {
	Index      int             `json:"index"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	Activities []ActivityGroup `json:"activities"`
}

// GroupWeeks partitions slots into windowWeeks consecutive calendar weeks
// anchored at the Monday on or before today. Slots outside the window are
// dropped from the view; empty weeks are kept so the window length is fixed.
// Within a week, slots are grouped by activity type and ordered by day column.
func GroupWeeks(slots []ScheduleSlot, today time.Time, windowWeeks int) []Week {
	if windowWeeks <= 0 {
		windowWeeks = DefaultWindowWeeks
	}
	anchor := AnchorMonday(today)

	weeks := make([]Week, windowWeeks)
	buckets := make([]map[string][]ScheduleSlot, windowWeeks)
	for i := range weeks {
		start := anchor.AddDate(0, 0, 7*i)
		weeks[i] = Week{Index: i, StartDate: start, EndDate: start.AddDate(0, 0, 6)}
		buckets[i] = make(map[string][]ScheduleSlot)
	}

	horizon := anchor.AddDate(0, 0, 7*windowWeeks)
	for _, slot := range slots {
		date := civilDate(slot.Date)
		if date.Before(anchor) || !date.Before(horizon) {
			continue
		}
		idx := int(date.Sub(anchor).Hours()) / (24 * 7)
		buckets[idx][slot.ActivityType] = append(buckets[idx][slot.ActivityType], slot)
	}

	for i := range weeks {
		names := make([]string, 0, len(buckets[i]))
		for name := range buckets[i] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			group := buckets[i][name]
			sort.SliceStable(group, func(a, b int) bool {
				if d := group[a].DayOfWeek() - group[b].DayOfWeek(); d != 0 {
					return d < 0
				}
				return group[a].ID < group[b].ID
			})
			weeks[i].Activities = append(weeks[i].Activities, ActivityGroup{ActivityType: name, Slots: group})
		}
	}

	return weeks
}
