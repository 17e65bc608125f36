package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle stage of a project
type ProjectStatus string

const (
	StatusPlanning      ProjectStatus = "Planning"
	StatusInDevelopment ProjectStatus = "In Development"
	StatusTesting       ProjectStatus = "Testing"
	StatusDeployed      ProjectStatus = "Deployed"
	StatusMaintenance   ProjectStatus = "Maintenance"
)

// ProjectStatuses lists every status in display order
var ProjectStatuses = []ProjectStatus{
	StatusPlanning,
	StatusInDevelopment,
	StatusTesting,
	StatusDeployed,
	StatusMaintenance,
}

// Priority is shared by projects and tasks
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Category describes what kind of product a project is
type Category string

const (
	CategoryWebApp      Category = "Web App"
	CategoryLandingPage Category = "Landing Page"
	CategoryPlatform    Category = "Platform"
	CategoryTool        Category = "Tool"
)

var (
	ErrDuplicateTask = errors.New("task id already exists in project")
	ErrTaskNotFound  = errors.New("task not found")
)

// Project is a whole document in the project store. Tasks are embedded.
type Project struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Status       ProjectStatus `json:"status"`
	Priority     Priority      `json:"priority"`
	Progress     int           `json:"progress"`
	DueDate      string        `json:"due_date,omitempty"`
	Category     Category      `json:"category"`
	Technologies []string      `json:"technologies"`
	Repository   string        `json:"repository,omitempty"`
	DeployURL    string        `json:"deploy_url,omitempty"`
	Tasks        []Task        `json:"tasks"`
	Notes        []string      `json:"notes"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewProject creates a project with defaults
func NewProject(name string) Project {
	now := time.Now()
	return Project{
		ID:           uuid.New().String(),
		Name:         name,
		Status:       StatusPlanning,
		Priority:     PriorityMedium,
		Category:     CategoryWebApp,
		Technologies: []string{},
		Tasks:        []Task{},
		Notes:        []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ClampProgress bounds a progress value to 0..100
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// FindTask returns the index of the task with the given id, or -1
func (p *Project) FindTask(id string) int {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// AddTask appends a task, assigning an id if it has none.
// Task ids are unique within a project.
func (p *Project) AddTask(t Task) (Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if p.FindTask(t.ID) >= 0 {
		return Task{}, fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	p.Tasks = append(p.Tasks, t)
	return t, nil
}

// UpdateTask replaces the task with the same id
func (p *Project) UpdateTask(t Task) error {
	i := p.FindTask(t.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, t.ID)
	}
	p.Tasks[i] = t
	return nil
}

// RemoveTask deletes the task with the given id
func (p *Project) RemoveTask(id string) error {
	i := p.FindTask(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	p.Tasks = append(p.Tasks[:i], p.Tasks[i+1:]...)
	return nil
}

// ActiveTaskCount counts tasks that are not Done
func (p *Project) ActiveTaskCount() int {
	n := 0
	for _, t := range p.Tasks {
		if t.Status != TaskDone {
			n++
		}
	}
	return n
}

// DoneTaskCount counts tasks that are Done
func (p *Project) DoneTaskCount() int {
	return len(p.Tasks) - p.ActiveTaskCount()
}

// ParseProjectStatus matches a status name case-insensitively
func ParseProjectStatus(s string) (ProjectStatus, error) {
	for _, st := range ProjectStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid project status %q", s)
}

// ParsePriority matches a priority name case-insensitively
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid priority %q (Low, Medium, High)", s)
}

// ParseCategory matches a category name case-insensitively
func ParseCategory(s string) (Category, error) {
	for _, c := range []Category{CategoryWebApp, CategoryLandingPage, CategoryPlatform, CategoryTool} {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", s)
}
