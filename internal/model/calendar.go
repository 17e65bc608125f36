package model

import (
	"fmt"
	"sort"
	"time"
)

// EventKind distinguishes project deadlines from task deadlines
type EventKind string

const (
	EventProject EventKind = "project"
	EventTask    EventKind = "task"
)

// CalendarEvent is a due date placed on the calendar
type CalendarEvent struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	TaskID      string    `json:"task_id,omitempty"`
	Done        bool      `json:"done"`
}

// CalendarEvents collects project and task due dates, sorted by date
func CalendarEvents(projects []Project) []CalendarEvent {
	var events []CalendarEvent
	for _, p := range projects {
		if p.DueDate != "" {
			events = append(events, CalendarEvent{
				ID:          "project-" + p.ID,
				Kind:        EventProject,
				Title:       p.Name,
				Date:        p.DueDate,
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Done:        p.Status == StatusDeployed,
			})
		}
		for _, t := range p.Tasks {
			if t.DueDate == "" {
				continue
			}
			events = append(events, CalendarEvent{
				ID:          fmt.Sprintf("task-%s-%s", p.ID, t.ID),
				Kind:        EventTask,
				Title:       t.Title,
				Date:        t.DueDate,
				ProjectID:   p.ID,
				ProjectName: p.Name,
				TaskID:      t.ID,
				Done:        t.IsDone(),
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return dayKey(events[i].Date) < dayKey(events[j].Date)
	})
	return events
}

// Urgency classifies the event. Completed items have no urgency.
func (e CalendarEvent) Urgency(now time.Time) Urgency {
	if e.Done {
		return UrgencyNone
	}
	return Classify(e.Date, now)
}

// EventsOn returns the events falling on the calendar day of day
func EventsOn(events []CalendarEvent, day time.Time) []CalendarEvent {
	key := day.Format(DateLayout)
	var out []CalendarEvent
	for _, e := range events {
		if dayKey(e.Date) == key {
			out = append(out, e)
		}
	}
	return out
}

// MonthGrid lays out a month as weeks of 7 days starting on Monday.
// Days outside the month are zero times.
func MonthGrid(year int, month time.Month, loc *time.Location) [][7]time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(first.Weekday()) + 6) % 7
	var weeks [][7]time.Time
	var week [7]time.Time
	col := offset
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		week[col] = d
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = [7]time.Time{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

func dayKey(s string) string {
	if d, ok := ParseDueDate(s, time.Local); ok {
		return d.Format(DateLayout)
	}
	return s
}
