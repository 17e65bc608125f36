package model

import (
	"sort"
	"strings"
	"time"
)

// ProjectTask is a task together with the project that owns it
type ProjectTask struct {
	Task
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Urgency     Urgency `json:"urgency"`
}

// CollectTasks flattens the tasks of all projects, classifying each one
func CollectTasks(projects []Project, includeDone bool, now time.Time) []ProjectTask {
	var out []ProjectTask
	for _, p := range projects {
		for _, t := range p.Tasks {
			if !includeDone && t.IsDone() {
				continue
			}
			out = append(out, ProjectTask{
				Task:        t,
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Urgency:     Classify(t.DueDate, now),
			})
		}
	}
	return out
}

// SortTasksByUrgency orders tasks by severity, then by due date ascending.
// Tasks without a due date keep their relative order at the end.
func SortTasksByUrgency(tasks []ProjectTask, now time.Time) {
	loc := now.Location()
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := tasks[i].Urgency.Rank(), tasks[j].Urgency.Rank()
		if ri != rj {
			return ri < rj
		}
		di, oki := ParseDueDate(tasks[i].DueDate, loc)
		dj, okj := ParseDueDate(tasks[j].DueDate, loc)
		if !oki || !okj {
			return false
		}
		return di.Before(dj)
	})
}

// TaskFilter narrows the cross-project task list. Empty fields match all.
type TaskFilter struct {
	Search   string
	Status   TaskStatus
	Priority Priority
}

// FilterTasks applies a filter. Search matches title, description and
// project name case-insensitively.
func FilterTasks(tasks []ProjectTask, f TaskFilter) []ProjectTask {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	var out []ProjectTask
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.ProjectName), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// UrgentTasks returns not-done tasks due today or within the next 3 days
func UrgentTasks(projects []Project, now time.Time) []ProjectTask {
	var out []ProjectTask
	for _, t := range CollectTasks(projects, false, now) {
		if t.Urgency == UrgencyToday || t.Urgency == UrgencyUrgent {
			out = append(out, t)
		}
	}
	SortTasksByUrgency(out, now)
	return out
}

// OverdueTasks returns not-done tasks past their due date
func OverdueTasks(projects []Project, now time.Time) []ProjectTask {
	var out []ProjectTask
	for _, t := range CollectTasks(projects, false, now) {
		if t.Urgency == UrgencyOverdue {
			out = append(out, t)
		}
	}
	SortTasksByUrgency(out, now)
	return out
}
