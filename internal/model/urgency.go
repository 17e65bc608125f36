package model

import (
	"math"
	"time"
)

// Urgency is the proximity bucket of a due date relative to now
type Urgency string

const (
	UrgencyOverdue Urgency = "overdue"
	UrgencyToday   Urgency = "today"
	UrgencyUrgent  Urgency = "urgent"
	UrgencyWarning Urgency = "warning"
	UrgencyNormal  Urgency = "normal"
	UrgencyNone    Urgency = "none"
)

// Classify maps a due date to an urgency bucket.
// The delta is counted in whole calendar days in now's location.
func Classify(dueDate string, now time.Time) Urgency {
	due, ok := ParseDueDate(dueDate, now.Location())
	if !ok {
		return UrgencyNone
	}
	days := DaysUntil(due, now)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days == 0:
		return UrgencyToday
	case days <= 3:
		return UrgencyUrgent
	case days <= 7:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// DaysUntil returns the calendar-day delta from now's date to due's date
func DaysUntil(due, now time.Time) int {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	d := due.In(loc)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	// round absorbs 23h/25h days around DST switches
	return int(math.Round(day.Sub(today).Hours() / 24))
}

// Rank orders buckets by severity, overdue first
func (u Urgency) Rank() int {
	switch u {
	case UrgencyOverdue:
		return 0
	case UrgencyToday:
		return 1
	case UrgencyUrgent:
		return 2
	case UrgencyWarning:
		return 3
	case UrgencyNormal:
		return 4
	default:
		return 5
	}
}

// Label is the short human text for a bucket
func (u Urgency) Label() string {
	switch u {
	case UrgencyOverdue:
		return "Overdue"
	case UrgencyToday:
		return "Due today"
	case UrgencyUrgent:
		return "Due soon"
	case UrgencyWarning:
		return "This week"
	case UrgencyNormal:
		return "Upcoming"
	default:
		return "No due date"
	}
}
