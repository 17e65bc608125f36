package model

import (
	"strings"
	"time"
)

// ProjectRequest is the input of the project generation wizard
type ProjectRequest struct {
	Name         string   `json:"name"`
	Idea         string   `json:"idea"`
	Category     Category `json:"category"`
	Technologies []string `json:"technologies"`
	Timeline     string   `json:"timeline"`
	Priority     Priority `json:"priority"`
}

// GeneratedTask is a task drafted by the assistant
type GeneratedTask struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Priority      Priority `json:"priority"`
	EstimatedDays int      `json:"estimated_days"`
}

// GeneratedProject is the assistant's draft for a new project
type GeneratedProject struct {
	Description           string          `json:"description"`
	Tasks                 []GeneratedTask `json:"tasks"`
	SuggestedTechnologies []string        `json:"suggested_technologies"`
	EstimatedDuration     string          `json:"estimated_duration"`
	Complexity            string          `json:"complexity"`
}

// ToProject turns a draft into a new Planning project. Task due dates are
// laid out back to back from now using the estimated days.
func (g GeneratedProject) ToProject(req ProjectRequest, now time.Time) Project {
	p := NewProject(req.Name)
	p.Description = g.Description
	if req.Category != "" {
		p.Category = req.Category
	}
	if req.Priority != "" {
		p.Priority = req.Priority
	}
	p.Technologies = append([]string{}, req.Technologies...)
	for _, tech := range g.SuggestedTechnologies {
		if !containsFold(p.Technologies, tech) {
			p.Technologies = append(p.Technologies, tech)
		}
	}
	if g.EstimatedDuration != "" {
		p.Notes = append(p.Notes, "Estimated duration: "+g.EstimatedDuration)
	}
	if g.Complexity != "" {
		p.Notes = append(p.Notes, "Complexity: "+g.Complexity)
	}

	offset := 0
	for _, gt := range g.Tasks {
		days := gt.EstimatedDays
		if days < 1 {
			days = 1
		}
		offset += days
		t := NewTask(gt.Title)
		t.Description = gt.Description
		if gt.Priority != "" {
			t.Priority = gt.Priority
		}
		t.DueDate = now.AddDate(0, 0, offset).Format(DateLayout)
		_, _ = p.AddTask(t)
	}

	total := offset
	if total < 30 {
		total = 30
	}
	p.DueDate = now.AddDate(0, 0, total).Format(DateLayout)
	return p
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
