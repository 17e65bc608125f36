package model

import "time"

// NotificationType is the origin/purpose of a notification
type NotificationType string

const (
	NotifyDailyInsight      NotificationType = "daily_insight"
	NotifyDeadlineReminder  NotificationType = "deadline_reminder"
	NotifyProjectSuggestion NotificationType = "project_suggestion"
	NotifyUrgentTask        NotificationType = "urgent_task"
	NotifyMilestone         NotificationType = "milestone"
)

// NotificationPriority controls emphasis when rendering
type NotificationPriority string

const (
	NotifyLow    NotificationPriority = "low"
	NotifyMedium NotificationPriority = "medium"
	NotifyHigh   NotificationPriority = "high"
	NotifyUrgent NotificationPriority = "urgent"
)

// Notification is an entry in the notification list
type Notification struct {
	ID          string               `json:"id"`
	Type        NotificationType     `json:"type"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Priority    NotificationPriority `json:"priority"`
	Timestamp   time.Time            `json:"timestamp"`
	Read        bool                 `json:"read"`
	ProjectID   string               `json:"project_id,omitempty"`
	TaskID      string               `json:"task_id,omitempty"`
	ActionURL   string               `json:"action_url,omitempty"`
	AIGenerated bool                 `json:"ai_generated"`
}
