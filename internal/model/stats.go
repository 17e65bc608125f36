package model

import (
	"math"
	"time"
)

// ProjectStats summarizes the portfolio for the dashboard
type ProjectStats struct {
	Total           int                   `json:"total"`
	Active          int                   `json:"active"`
	Completed       int                   `json:"completed"`
	Overdue         int                   `json:"overdue"`
	AverageProgress int                   `json:"average_progress"`
	ByStatus        map[ProjectStatus]int `json:"by_status"`
}

// TaskStats summarizes tasks across all projects
type TaskStats struct {
	Total    int                `json:"total"`
	ByStatus map[TaskStatus]int `json:"by_status"`
	Overdue  int                `json:"overdue"`
	Today    int                `json:"today"`
	Urgent   int                `json:"urgent"`
	Warning  int                `json:"warning"`
}

// ComputeProjectStats aggregates project counts and average progress
func ComputeProjectStats(projects []Project, now time.Time) ProjectStats {
	s := ProjectStats{ByStatus: make(map[ProjectStatus]int)}
	sum := 0
	for _, p := range projects {
		s.Total++
		s.ByStatus[p.Status]++
		sum += ClampProgress(p.Progress)
		switch p.Status {
		case StatusInDevelopment:
			s.Active++
		case StatusDeployed:
			s.Completed++
		}
		if p.Status != StatusDeployed && Classify(p.DueDate, now) == UrgencyOverdue {
			s.Overdue++
		}
	}
	if s.Total > 0 {
		s.AverageProgress = int(math.Round(float64(sum) / float64(s.Total)))
	}
	return s
}

// ComputeTaskStats counts tasks per status and per urgency bucket.
// Urgency counts only include tasks that are not Done.
func ComputeTaskStats(projects []Project, now time.Time) TaskStats {
	s := TaskStats{ByStatus: make(map[TaskStatus]int)}
	for _, t := range CollectTasks(projects, true, now) {
		s.Total++
		s.ByStatus[t.Status]++
		if t.IsDone() {
			continue
		}
		switch t.Urgency {
		case UrgencyOverdue:
			s.Overdue++
		case UrgencyToday:
			s.Today++
		case UrgencyUrgent:
			s.Urgent++
		case UrgencyWarning:
			s.Warning++
		}
	}
	return s
}
