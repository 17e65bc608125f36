package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/existflow/devpilot/internal/gemini"
	"github.com/existflow/devpilot/internal/model"
)

// Draft defaults
const (
	DefaultTaskTitle  = "Untitled task"
	DefaultDuration   = "Not specified"
	DefaultComplexity = "Medium"
)

// BuildProjectPrompt formats a project generation request
func BuildProjectPrompt(req model.ProjectRequest) string {
	var b strings.Builder
	b.WriteString("As an expert in project management and software development, generate a detailed plan for the following project:\n\n")
	b.WriteString("PROJECT INFORMATION:\n")
	fmt.Fprintf(&b, "- Name: %s\n", req.Name)
	fmt.Fprintf(&b, "- Category: %s\n", req.Category)
	if req.Idea != "" {
		fmt.Fprintf(&b, "- Initial description: %s\n", req.Idea)
	}
	if len(req.Technologies) > 0 {
		fmt.Fprintf(&b, "- Preferred technologies: %s\n", strings.Join(req.Technologies, ", "))
	}
	if req.Timeline != "" {
		fmt.Fprintf(&b, "- Desired timeline: %s\n", req.Timeline)
	}
	b.WriteString(`
REQUEST:
Create a complete project with:
1. A detailed, professional description of the project (2-3 sentences)
2. A list of 6-10 specific, realistic development tasks
3. Recommended technologies for the project
4. An estimate of the overall duration
5. The complexity level

RESPONSE FORMAT (JSON):
{
  "description": "Detailed project description...",
  "tasks": [
    {
      "title": "Task title",
      "description": "Detailed task description",
      "priority": "High|Medium|Low",
      "estimatedDays": number_of_days
    }
  ],
  "suggestedTechnologies": ["React", "Node.js", "..."],
  "estimatedDuration": "X weeks",
  "complexity": "High|Medium|Low"
}

Reply ONLY with valid JSON, without markdown or extra text.`)
	return b.String()
}

// ParseGeneratedProject decodes a project draft. A description and a task
// list are required; everything else is defaulted.
func ParseGeneratedProject(text string) (model.GeneratedProject, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return model.GeneratedProject{}, err
	}

	desc := obj.str("description")
	if desc == "" {
		return model.GeneratedProject{}, &ParseError{Reason: "draft has no description"}
	}
	var taskList []json.RawMessage
	raw, ok := obj["tasks"]
	if !ok || json.Unmarshal(raw, &taskList) != nil {
		return model.GeneratedProject{}, &ParseError{Reason: "draft has no task list"}
	}

	g := model.GeneratedProject{
		Description:           desc,
		Tasks:                 []model.GeneratedTask{},
		SuggestedTechnologies: []string{},
		EstimatedDuration:     obj.str("estimatedDuration", "estimated_duration"),
		Complexity:            levelOr(obj.str("complexity"), DefaultComplexity),
	}
	if g.EstimatedDuration == "" {
		g.EstimatedDuration = DefaultDuration
	}

	for _, item := range obj.objects("tasks") {
		title := item.str("title")
		if title == "" {
			title = DefaultTaskTitle
		}
		days := 1
		if f, ok := rawNumber(item["estimatedDays"]); ok && f >= 1 {
			days = int(f)
		} else if f, ok := rawNumber(item["estimated_days"]); ok && f >= 1 {
			days = int(f)
		}
		g.Tasks = append(g.Tasks, model.GeneratedTask{
			Title:         title,
			Description:   item.str("description"),
			Priority:      model.Priority(levelOr(item.str("priority"), string(model.PriorityMedium))),
			EstimatedDays: days,
		})
	}

	for _, r := range obj.list("suggestedTechnologies", "suggested_technologies") {
		if s := rawString(r); s != "" {
			g.SuggestedTechnologies = append(g.SuggestedTechnologies, s)
		}
	}
	return g, nil
}

// levelOr accepts Low/Medium/High in any case, else def
func levelOr(s, def string) string {
	if p, err := model.ParsePriority(s); err == nil {
		return string(p)
	}
	return def
}

// Drafter generates project drafts with the remote model
type Drafter struct {
	gen Generator
}

// NewDrafter creates a Drafter
func NewDrafter(gen Generator) *Drafter {
	return &Drafter{gen: gen}
}

// Draft asks the model for a project plan. Unlike the daily insight a
// malformed draft is an error: there is no useful fallback plan.
func (d *Drafter) Draft(ctx context.Context, req model.ProjectRequest) (model.GeneratedProject, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.GeneratedProject{}, fmt.Errorf("project name is required")
	}
	if req.Category == "" {
		req.Category = model.CategoryWebApp
	}
	text, err := d.gen.GenerateFor(ctx, "project_draft", BuildProjectPrompt(req), gemini.CreativeGeneration)
	if err != nil {
		return model.GeneratedProject{}, err
	}
	return ParseGeneratedProject(text)
}
