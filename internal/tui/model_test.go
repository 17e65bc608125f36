package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/devpilot/internal/db"
	"github.com/existflow/devpilot/internal/insight"
	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/model"
	"github.com/existflow/devpilot/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, trigger insight.Trigger) (*insight.Result, error) {
	return &insight.Result{}, nil
}

type fixture struct {
	db     *db.DB
	notify *notify.Store
	model  Model
}

func newFixture(t *testing.T, setup func(ctx context.Context, d *db.DB)) *fixture {
	t.Helper()
	ctx := context.Background()
	database, err := db.Open(filepath.Join(t.TempDir(), "tui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	if setup != nil {
		setup(ctx, database)
	}

	store := notify.NewStore(localstate.NewMemory())
	store.SetClock(func() time.Time { return testNow })

	m := NewModel(Services{Projects: database, Notifications: store, Insights: stubRunner{}})
	m.now = func() time.Time { return testNow }
	m.loadData()
	m.width, m.height = 140, 40

	return &fixture{db: database, notify: store, model: m}
}

func addProject(t *testing.T, ctx context.Context, d *db.DB, name string, tasks ...model.Task) model.Project {
	t.Helper()
	p := model.NewProject(name)
	require.NoError(t, d.SaveProject(ctx, &p))
	for _, task := range tasks {
		_, err := d.AddTask(ctx, p.ID, task)
		require.NoError(t, err)
	}
	return p
}

func taskDue(title, due string) model.Task {
	task := model.NewTask(title)
	task.DueDate = due
	return task
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func titles(tasks []model.ProjectTask) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func TestTasksSortedByUrgency(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, d *db.DB) {
		addProject(t, ctx, d, "Alpha",
			taskDue("later", ""),
			taskDue("this week", "2026-04-15"),
			taskDue("late", "2026-04-08"),
			taskDue("today", "2026-04-10"),
		)
	})

	assert.Equal(t, []string{"late", "today", "this week", "later"}, titles(f.model.tasks))
	assert.Equal(t, model.UrgencyOverdue, f.model.tasks[0].Urgency)
}

func TestToggleDoneMovesTaskToEnd(t *testing.T) {
	var pid string
	f := newFixture(t, func(ctx context.Context, d *db.DB) {
		p := addProject(t, ctx, d, "Alpha", taskDue("first", "2026-04-09"), taskDue("second", "2026-04-20"))
		pid = p.ID
	})

	m := press(t, f.model, "tab")
	require.Equal(t, PaneTasks, m.pane)
	m = press(t, m, "x")

	assert.Equal(t, []string{"second", "first"}, titles(m.tasks))
	assert.Contains(t, m.message, "Done: first")

	p, err := f.db.GetProject(context.Background(), pid)
	require.NoError(t, err)
	for _, task := range p.Tasks {
		if task.Title == "first" {
			assert.Equal(t, model.TaskDone, task.Status)
		}
	}

	m.taskCursor = 1
	m = press(t, m, "x")
	assert.Equal(t, []string{"first", "second"}, titles(m.tasks))
	assert.False(t, m.tasks[0].IsDone())
}

func TestAddTaskThroughInput(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, d *db.DB) {
		addProject(t, ctx, d, "Alpha")
	})

	m := press(t, f.model, "a")
	require.Equal(t, ModeAddTask, m.mode)
	m = press(t, m, "Write docs")
	m = press(t, m, "enter")

	assert.Equal(t, ModeNormal, m.mode)
	assert.Equal(t, []string{"Write docs"}, titles(m.tasks))

	projects, err := f.db.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects[0].Tasks, 1)
	assert.Equal(t, model.TaskTodo, projects[0].Tasks[0].Status)
}

func TestAddProjectSelectsIt(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, d *db.DB) {
		addProject(t, ctx, d, "Alpha", model.NewTask("a1"))
	})

	m := press(t, f.model, "p")
	m = press(t, m, "Zeta")
	m = press(t, m, "enter")

	require.Len(t, m.projects, 2)
	assert.Equal(t, "Zeta", m.currentProject().Name)
	assert.Empty(t, m.tasks)
}

func TestFilterNarrowsTasks(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, d *db.DB) {
		addProject(t, ctx, d, "Alpha", model.NewTask("Fix login"), model.NewTask("Write docs"))
	})

	m := press(t, f.model, "/")
	require.Equal(t, ModeFilter, m.mode)
	m = press(t, m, "login")
	assert.Equal(t, []string{"Fix login"}, titles(m.tasks))

	m = press(t, m, "esc")
	assert.Equal(t, ModeNormal, m.mode)
	assert.Len(t, m.tasks, 2)
}

func TestAllTasksSpansProjects(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, d *db.DB) {
		addProject(t, ctx, d, "Alpha", taskDue("a", "2026-04-20"))
		addProject(t, ctx, d, "Beta", taskDue("b", "2026-04-11"))
	})

	assert.Equal(t, []string{"a"}, titles(f.model.tasks))
	m := press(t, f.model, "u")
	assert.Equal(t, []string{"b", "a"}, titles(m.tasks))
	assert.Equal(t, "Beta", m.tasks[0].ProjectName)
}

func TestStaleInsightReplyIsDropped(t *testing.T) {
	f := newFixture(t, nil)

	m := press(t, f.model, "g")
	m = press(t, m, "g")
	require.True(t, m.generating)
	require.Equal(t, 2, m.generation)

	next, _ := m.Update(insightDoneMsg{gen: 1, res: &insight.Result{Insight: model.Insight{ProductivityScore: 10}}})
	m = next.(Model)
	assert.True(t, m.generating)
	assert.Equal(t, "Generating briefing...", m.message)

	next, _ = m.Update(insightDoneMsg{gen: 2, res: &insight.Result{Insight: model.Insight{ProductivityScore: 80}}})
	m = next.(Model)
	assert.False(t, m.generating)
	assert.Contains(t, m.message, "score 80/100")
	assert.Equal(t, PaneNotifications, m.pane)
}

func TestEscapeCancelsInsight(t *testing.T) {
	f := newFixture(t, nil)

	m := press(t, f.model, "g")
	m = press(t, m, "esc")
	assert.False(t, m.generating)
	assert.Equal(t, "Briefing cancelled", m.message)

	next, _ := m.Update(insightDoneMsg{gen: 1, err: context.Canceled})
	m = next.(Model)
	assert.Equal(t, "Briefing cancelled", m.message)
	assert.Equal(t, PaneProjects, m.pane)
}

func TestInsightFailureKeepsPane(t *testing.T) {
	f := newFixture(t, nil)

	m := press(t, f.model, "g")
	next, _ := m.Update(insightDoneMsg{gen: 1, err: errors.New("quota exceeded")})
	m = next.(Model)
	assert.False(t, m.generating)
	assert.Equal(t, "Briefing failed: quota exceeded", m.message)
	assert.Equal(t, PaneProjects, m.pane)
}

func TestNotificationsPane(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.notify.Add(model.Notification{ID: "n1", Title: "Old", Message: "m", Priority: model.NotifyLow, Timestamp: testNow.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = f.notify.Add(model.Notification{ID: "n2", Title: "New", Message: "m", Priority: model.NotifyHigh, Timestamp: testNow})
	require.NoError(t, err)

	m := f.model
	m.loadNotifications()
	require.Len(t, m.notifications, 2)

	m = press(t, m, "tab")
	m = press(t, m, "tab")
	require.Equal(t, PaneNotifications, m.pane)

	m = press(t, m, "enter")
	assert.Equal(t, 1, f.notify.UnreadCount())
	assert.True(t, m.notifications[0].Read)

	m = press(t, m, "A")
	assert.Equal(t, 0, f.notify.UnreadCount())

	m = press(t, m, "d")
	assert.Len(t, f.notify.List(), 1)
	assert.Len(t, m.notifications, 1)
}

func TestViewRendersPanes(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, d *db.DB) {
		addProject(t, ctx, d, "Alpha", taskDue("Ship it", "2026-04-09"))
	})

	out := f.model.View()
	assert.Contains(t, out, "DevPilot")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Ship it")
	assert.Contains(t, out, "1d late")
	assert.Contains(t, out, "Notifications")

	m := press(t, f.model, "?")
	assert.Contains(t, m.View(), "Keyboard shortcuts")
}
