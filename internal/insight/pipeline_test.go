package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/existflow/devpilot/internal/gemini"
	"github.com/existflow/devpilot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pipelineNow = time.Date(2026, 6, 1, 8, 5, 0, 0, time.UTC)

type staticProjects []model.Project

func (s staticProjects) ListProjects(ctx context.Context) ([]model.Project, error) {
	return s, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	configs []gemini.GenerationConfig
}

func (f *fakeGenerator) GenerateFor(ctx context.Context, operation, prompt string, gc gemini.GenerationConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.configs = append(f.configs, gc)
	return f.reply, f.err
}

type memorySink struct {
	items []model.Notification
}

func (m *memorySink) Add(n model.Notification) (model.Notification, error) {
	m.items = append(m.items, n)
	return n, nil
}

func portfolio() staticProjects {
	p := model.NewProject("Storefront")
	p.ID = "p1"
	p.Tasks = []model.Task{
		{ID: "t1", Title: "Fix cart bug", Status: model.TaskTodo, DueDate: "2026-05-31"},
		{ID: "t2", Title: "Demo", Status: model.TaskTodo, DueDate: "2026-06-02"},
	}
	return staticProjects{p}
}

func TestPipelineRun(t *testing.T) {
	gen := &fakeGenerator{reply: "Analysis:\n" + wellFormed}
	sink := &memorySink{}
	p := NewPipeline(portfolio(), gen, sink)
	p.SetClock(func() time.Time { return pipelineNow })

	res, err := p.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, res.Fallback)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Fix cart bug")
	assert.Equal(t, 0.3, gen.configs[0].Temperature)
	assert.Equal(t, 2048, gen.configs[0].MaxOutputTokens)

	// overview + 2 alerts + top priority project
	require.Len(t, sink.items, 4)
	assert.Equal(t, model.NotifyDailyInsight, sink.items[0].Type)
	assert.Equal(t, model.NotifyUrgentTask, sink.items[1].Type)
	assert.Equal(t, model.NotifyUrgent, sink.items[1].Priority)
	assert.Equal(t, model.NotifyDeadlineReminder, sink.items[2].Type)
	assert.Equal(t, model.NotifyHigh, sink.items[2].Priority)
	assert.Equal(t, model.NotifyProjectSuggestion, sink.items[3].Type)
	assert.Equal(t, model.NotifyHigh, sink.items[3].Priority)
	for _, n := range sink.items {
		assert.True(t, n.AIGenerated)
		assert.Equal(t, pipelineNow, n.Timestamp)
	}
}

func TestPipelineFallsBackOnParseError(t *testing.T) {
	gen := &fakeGenerator{reply: "Sorry, no JSON today."}
	sink := &memorySink{}
	p := NewPipeline(portfolio(), gen, sink)

	res, err := p.Run(context.Background(), TriggerScheduled)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	require.Len(t, sink.items, 1)
	assert.Equal(t, FallbackInsight().Overview, sink.items[0].Message)
}

func TestPipelineReturnsRemoteErrors(t *testing.T) {
	for name, genErr := range map[string]error{
		"configuration": &gemini.ConfigurationError{Reason: "no key"},
		"remote":        &gemini.RemoteServiceError{StatusCode: 500, Message: "boom"},
		"empty":         &gemini.EmptyResponseError{Reason: "nothing"},
	} {
		t.Run(name, func(t *testing.T) {
			sink := &memorySink{}
			p := NewPipeline(portfolio(), &fakeGenerator{err: genErr}, sink)

			_, err := p.Run(context.Background(), TriggerManual)
			require.Error(t, err)
			assert.True(t, errors.Is(err, genErr))
			assert.Empty(t, sink.items)
		})
	}
}

func TestToNotificationsSuggestionPriority(t *testing.T) {
	ins := model.Insight{
		Overview:         "ok",
		PriorityProjects: []model.PriorityProject{{ProjectID: "p", Reason: "because", Urgency: 7}},
	}
	ns := ToNotifications(ins, pipelineNow)
	require.Len(t, ns, 2)
	assert.Equal(t, model.NotifyMedium, ns[1].Priority)
	assert.Equal(t, "p", ns[1].ProjectID)
	assert.NotEqual(t, ns[0].ID, ns[1].ID)
}

func TestBuildDailyPrompt(t *testing.T) {
	empty := BuildDailyPrompt(nil, pipelineNow)
	assert.Contains(t, empty, NoProjectsSentinel)
	assert.Contains(t, empty, "productivity_score")

	prompt := BuildDailyPrompt(portfolio(), pipelineNow)
	assert.NotContains(t, prompt, NoProjectsSentinel)
	assert.Contains(t, prompt, "Storefront (Planning, Priority: Medium, Progress: 0%)")
	assert.Contains(t, prompt, "[p1/t2] Demo (Storefront) - Due: 2026-06-02")
	assert.Contains(t, prompt, "[p1/t1] Fix cart bug (Storefront) - Was due: 2026-05-31")
}

func TestBuildDailyPromptIsBounded(t *testing.T) {
	var many staticProjects
	for i := 0; i < 200; i++ {
		p := model.NewProject("Project")
		p.Description = strings.Repeat("long description ", 100)
		for j := 0; j < 5; j++ {
			p.Tasks = append(p.Tasks, model.Task{ID: "t", Title: "late", Status: model.TaskTodo, DueDate: "2026-05-01"})
		}
		many = append(many, p)
	}

	prompt := BuildDailyPrompt(many, pipelineNow)
	assert.Equal(t, MaxPromptProjects, strings.Count(prompt, "Completed tasks:"))
	assert.Contains(t, prompt, "... and 150 more projects")
	assert.Equal(t, MaxPromptTasks, strings.Count(prompt, "Was due:"))
	assert.Less(t, len(prompt), 64*1024)
}

func TestBuildDailyPromptTruncatesNames(t *testing.T) {
	long := strings.Repeat("n", 5000)
	p := model.NewProject(long)
	p.ID = "p1"
	p.Tasks = []model.Task{{ID: "t1", Title: "late", Status: model.TaskTodo, DueDate: "2026-05-01"}}

	prompt := BuildDailyPrompt([]model.Project{p}, pipelineNow)
	cut := strings.Repeat("n", MaxNameLength-1) + "…"
	assert.Contains(t, prompt, "- [p1] "+cut+" (")
	assert.Contains(t, prompt, "[p1/t1] late ("+cut+") - Was due: 2026-05-01")
	assert.NotContains(t, prompt, strings.Repeat("n", MaxNameLength+1))
}
