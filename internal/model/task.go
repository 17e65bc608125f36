package model

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task
type TaskStatus string

const (
	TaskTodo       TaskStatus = "Todo"
	TaskInProgress TaskStatus = "In Progress"
	TaskReview     TaskStatus = "Review"
	TaskDone       TaskStatus = "Done"
)

// TaskStatuses lists every task status in workflow order
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskDone}

// DateLayout is the calendar date format used for due dates
const DateLayout = "2006-01-02"

// Task is a single work item owned by exactly one project
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Assignee    string     `json:"assignee"`
	DueDate     string     `json:"due_date,omitempty"`
	Tags        []string   `json:"tags"`
}

// NewTask creates a task with defaults
func NewTask(title string) Task {
	return Task{
		Title:    title,
		Status:   TaskTodo,
		Priority: PriorityMedium,
		Tags:     []string{},
	}
}

// IsDone returns true if the task is completed
func (t *Task) IsDone() bool {
	return t.Status == TaskDone
}

// ParseTaskStatus matches a task status case-insensitively
func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, st := range TaskStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid task status %q", s)
}

// ParseDueDate reads a due date as a calendar day in loc.
// Accepts YYYY-MM-DD and RFC3339 values.
func ParseDueDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		ts = ts.In(loc)
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

// NormalizeDueDate converts user input into YYYY-MM-DD.
// Supports "today", "tomorrow", "+Nd" and explicit dates.
func NormalizeDueDate(s string, now time.Time) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case s == "":
		return "", nil
	case s == "today":
		return today.Format(DateLayout), nil
	case s == "tomorrow":
		return today.AddDate(0, 0, 1).Format(DateLayout), nil
	case strings.HasPrefix(s, "+") && strings.HasSuffix(s, "d"):
		var n int
		if _, err := fmt.Sscanf(s, "+%dd", &n); err != nil {
			return "", fmt.Errorf("invalid relative date %q", s)
		}
		return today.AddDate(0, 0, n).Format(DateLayout), nil
	}
	d, ok := ParseDueDate(s, now.Location())
	if !ok {
		return "", fmt.Errorf("invalid date %q (use YYYY-MM-DD, today, tomorrow or +Nd)", s)
	}
	return d.Format(DateLayout), nil
}
