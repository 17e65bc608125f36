package insight

import (
	"context"
	"errors"
	"testing"

	"github.com/existflow/devpilot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneratedProject(t *testing.T) {
	g, err := ParseGeneratedProject("```json\n" + `{
	  "description": "A small online shop.",
	  "tasks": [
	    {"title": "Set up repo", "priority": "high", "estimatedDays": 2},
	    {"description": "no title", "priority": "urgent", "estimated_days": 0},
	    {"title": "Checkout", "estimatedDays": "3"}
	  ],
	  "suggestedTechnologies": ["Go", "", "HTMX"],
	  "complexity": "low"
	}` + "\n```")
	require.NoError(t, err)

	assert.Equal(t, "A small online shop.", g.Description)
	assert.Equal(t, DefaultDuration, g.EstimatedDuration)
	assert.Equal(t, "Low", g.Complexity)
	assert.Equal(t, []string{"Go", "HTMX"}, g.SuggestedTechnologies)

	require.Len(t, g.Tasks, 3)
	assert.Equal(t, model.GeneratedTask{Title: "Set up repo", Priority: model.PriorityHigh, EstimatedDays: 2}, g.Tasks[0])
	assert.Equal(t, DefaultTaskTitle, g.Tasks[1].Title)
	assert.Equal(t, model.PriorityMedium, g.Tasks[1].Priority)
	assert.Equal(t, 1, g.Tasks[1].EstimatedDays)
	assert.Equal(t, 3, g.Tasks[2].EstimatedDays)
}

func TestParseGeneratedProjectRequiresShape(t *testing.T) {
	for name, text := range map[string]string{
		"no description": `{"tasks": []}`,
		"no tasks":       `{"description": "x"}`,
		"tasks not list": `{"description": "x", "tasks": {}}`,
		"not json":       "I cannot help with that",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGeneratedProject(text)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestDrafter(t *testing.T) {
	gen := &fakeGenerator{reply: `{"description": "d", "tasks": [{"title": "one"}]}`}
	d := NewDrafter(gen)

	_, err := d.Draft(context.Background(), model.ProjectRequest{Name: "  "})
	require.Error(t, err)
	assert.Empty(t, gen.prompts)

	g, err := d.Draft(context.Background(), model.ProjectRequest{Name: "Shop", Technologies: []string{"Go"}})
	require.NoError(t, err)
	assert.Len(t, g.Tasks, 1)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "- Name: Shop")
	assert.Contains(t, gen.prompts[0], "- Category: "+string(model.CategoryWebApp))
	assert.Contains(t, gen.prompts[0], "- Preferred technologies: Go")
	assert.Equal(t, 0.7, gen.configs[0].Temperature)
}
