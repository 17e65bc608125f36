package db

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/devpilot/internal/model"
)

// SeedSampleProjects writes a small demo portfolio when the store is empty.
// Due dates are relative to now so every urgency bucket shows up.
func (db *DB) SeedSampleProjects(ctx context.Context, now time.Time) (int, error) {
	existing, err := db.ListProjects(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	due := func(days int) string {
		return now.AddDate(0, 0, days).Format(model.DateLayout)
	}

	shop := model.NewProject("Storefront")
	shop.Description = "E-commerce web app with catalogue, cart and checkout"
	shop.Status = model.StatusInDevelopment
	shop.Priority = model.PriorityHigh
	shop.Progress = 60
	shop.DueDate = due(14)
	shop.Technologies = []string{"Go", "PostgreSQL", "htmx"}
	shop.Tasks = []model.Task{
		{Title: "Payment provider integration", Status: model.TaskInProgress, Priority: model.PriorityHigh, Assignee: "me", DueDate: due(-1)},
		{Title: "Order confirmation email", Status: model.TaskTodo, Priority: model.PriorityMedium, DueDate: due(2)},
		{Title: "Catalogue search", Status: model.TaskDone, Priority: model.PriorityMedium, DueDate: due(-7)},
	}

	landing := model.NewProject("Launch page")
	landing.Description = "Marketing landing page for the beta launch"
	landing.Category = model.CategoryLandingPage
	landing.Status = model.StatusTesting
	landing.Progress = 85
	landing.DueDate = due(5)
	landing.Technologies = []string{"HTML", "CSS"}
	landing.Tasks = []model.Task{
		{Title: "Copy review", Status: model.TaskReview, Priority: model.PriorityMedium, DueDate: due(0)},
		{Title: "Lighthouse audit", Status: model.TaskTodo, Priority: model.PriorityLow, DueDate: due(6)},
	}

	tool := model.NewProject("Deploy helper")
	tool.Description = "CLI that wraps the release checklist"
	tool.Category = model.CategoryTool
	tool.Priority = model.PriorityLow
	tool.Progress = 10
	tool.Tasks = []model.Task{
		{Title: "Sketch command layout", Status: model.TaskTodo, Priority: model.PriorityLow},
	}

	seeded := 0
	for _, p := range []*model.Project{&shop, &landing, &tool} {
		tasks := p.Tasks
		p.Tasks = nil
		for _, t := range tasks {
			if _, err := p.AddTask(t); err != nil {
				return seeded, err
			}
		}
		if err := db.SaveProject(ctx, p); err != nil {
			return seeded, fmt.Errorf("failed to seed %s: %w", p.Name, err)
		}
		seeded++
	}
	return seeded, nil
}
