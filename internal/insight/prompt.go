package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/model"
)

// Prompt size bounds
const (
	MaxPromptProjects    = 50
	MaxPromptTasks       = 30
	MaxDescriptionLength = 280
	MaxNameLength        = 80
)

// NoProjectsSentinel replaces the project list when there is nothing to analyse
const NoProjectsSentinel = "No projects."

const dailySchema = `{
  "overview": "General analysis of the current situation (2-3 sentences)",
  "priorityProjects": [
    {
      "projectId": "project_id",
      "reason": "Why this project is a priority today",
      "urgency": number_from_1_to_10
    }
  ],
  "recommendedTasks": [
    {
      "projectId": "project_id",
      "taskId": "task_id",
      "reason": "Why this task should be done today"
    }
  ],
  "alerts": [
    {
      "type": "deadline|overdue|blocked",
      "message": "Warning message",
      "projectId": "project_id_if_applicable"
    }
  ],
  "suggestions": [
    "Practical suggestion to improve productivity",
    "Strategic advice for project progress"
  ],
  "productivity_score": number_from_1_to_100
}`

// BuildDailyPrompt formats a portfolio snapshot into the daily analysis
// request. Output size is bounded regardless of input size.
func BuildDailyPrompt(projects []model.Project, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyse the following projects and provide a strategic daily analysis for today (%s).\n\n",
		now.Format("Monday, 2 January 2006"))

	b.WriteString("PROJECTS:\n")
	if len(projects) == 0 {
		b.WriteString(NoProjectsSentinel + "\n")
	}
	for i, p := range projects {
		if i == MaxPromptProjects {
			fmt.Fprintf(&b, "... and %d more projects\n", len(projects)-MaxPromptProjects)
			break
		}
		due := p.DueDate
		if due == "" {
			due = "Not set"
		}
		fmt.Fprintf(&b, "- [%s] %s (%s, Priority: %s, Progress: %d%%)\n",
			p.ID, truncate(p.Name, MaxNameLength), p.Status, p.Priority, model.ClampProgress(p.Progress))
		fmt.Fprintf(&b, "  Description: %s\n", truncate(p.Description, MaxDescriptionLength))
		fmt.Fprintf(&b, "  Due date: %s\n", due)
		fmt.Fprintf(&b, "  Active tasks: %d\n", p.ActiveTaskCount())
		fmt.Fprintf(&b, "  Completed tasks: %d\n", p.DoneTaskCount())
	}

	b.WriteString("\nURGENT TASKS (due within 3 days):\n")
	writeTaskList(&b, model.UrgentTasks(projects, now), "Due")

	b.WriteString("\nOVERDUE TASKS:\n")
	writeTaskList(&b, model.OverdueTasks(projects, now), "Was due")

	b.WriteString("\nREQUEST:\nProvide a strategic daily analysis as JSON with this structure:\n")
	b.WriteString(dailySchema)
	b.WriteString(`

Focus on:
1. Priorities based on deadlines and importance
2. Concrete, actionable suggestions
3. Identifying potential blockers
4. Optimisation opportunities

Reply ONLY with valid JSON.`)

	return b.String()
}

func writeTaskList(b *strings.Builder, tasks []model.ProjectTask, dueLabel string) {
	if len(tasks) == 0 {
		b.WriteString("None.\n")
		return
	}
	for i, t := range tasks {
		if i == MaxPromptTasks {
			fmt.Fprintf(b, "... and %d more\n", len(tasks)-MaxPromptTasks)
			return
		}
		fmt.Fprintf(b, "- [%s/%s] %s (%s) - %s: %s\n",
			t.ProjectID, t.ID, truncate(t.Title, MaxDescriptionLength), truncate(t.ProjectName, MaxNameLength), dueLabel, t.DueDate)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
