package model

// AlertKind classifies an insight alert
type AlertKind string

const (
	AlertDeadline AlertKind = "deadline"
	AlertOverdue  AlertKind = "overdue"
	AlertBlocked  AlertKind = "blocked"
)

// PriorityProject is a project the assistant wants attention on
type PriorityProject struct {
	ProjectID string `json:"project_id"`
	Reason    string `json:"reason"`
	Urgency   int    `json:"urgency"`
}

// RecommendedTask is a task the assistant suggests working on
type RecommendedTask struct {
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
	Reason    string `json:"reason"`
}

// Alert is a warning raised by the assistant
type Alert struct {
	Kind      AlertKind `json:"type"`
	Message   string    `json:"message"`
	ProjectID string    `json:"project_id,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
}

// Insight is the structured daily analysis. It is never stored as such;
// it is projected into notifications right after parsing.
type Insight struct {
	Overview          string            `json:"overview"`
	PriorityProjects  []PriorityProject `json:"priority_projects"`
	RecommendedTasks  []RecommendedTask `json:"recommended_tasks"`
	Alerts            []Alert           `json:"alerts"`
	Suggestions       []string          `json:"suggestions"`
	ProductivityScore int               `json:"productivity_score"`
}
