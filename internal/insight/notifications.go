package insight

import (
	"time"

	"github.com/existflow/devpilot/internal/model"
	"github.com/google/uuid"
)

// Notification titles
const (
	TitleDailyInsight     = "Daily analysis of your projects"
	TitleDeadline         = "Deadline approaching"
	TitleAttention        = "Attention needed"
	TitlePriorityProject  = "Priority project today"
	urgentSuggestionLimit = 7
)

// ToNotifications projects an insight into notification records, in the
// order they should be appended: the overview, one per alert, then the
// top priority project
func ToNotifications(ins model.Insight, now time.Time) []model.Notification {
	out := []model.Notification{{
		ID:          uuid.New().String(),
		Type:        model.NotifyDailyInsight,
		Title:       TitleDailyInsight,
		Message:     ins.Overview,
		Priority:    model.NotifyMedium,
		Timestamp:   now,
		AIGenerated: true,
	}}

	for _, a := range ins.Alerts {
		n := model.Notification{
			ID:          uuid.New().String(),
			Type:        model.NotifyUrgentTask,
			Title:       TitleAttention,
			Message:     a.Message,
			Priority:    model.NotifyHigh,
			Timestamp:   now,
			ProjectID:   a.ProjectID,
			TaskID:      a.TaskID,
			AIGenerated: true,
		}
		switch a.Kind {
		case model.AlertDeadline:
			n.Type = model.NotifyDeadlineReminder
			n.Title = TitleDeadline
		case model.AlertOverdue:
			n.Priority = model.NotifyUrgent
		}
		out = append(out, n)
	}

	if len(ins.PriorityProjects) > 0 {
		top := ins.PriorityProjects[0]
		prio := model.NotifyMedium
		if top.Urgency > urgentSuggestionLimit {
			prio = model.NotifyHigh
		}
		out = append(out, model.Notification{
			ID:          uuid.New().String(),
			Type:        model.NotifyProjectSuggestion,
			Title:       TitlePriorityProject,
			Message:     top.Reason,
			Priority:    prio,
			Timestamp:   now,
			ProjectID:   top.ProjectID,
			AIGenerated: true,
		})
	}

	return out
}
