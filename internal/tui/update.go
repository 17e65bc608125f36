package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/devpilot/internal/insight"
	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/model"
	"github.com/existflow/devpilot/internal/sync"
)

// tickMsg is sent every second for clock and due-date updates
type tickMsg time.Time

// syncRefreshMsg is sent when remote changes are pulled
type syncRefreshMsg struct{}

// notificationsChangedMsg is sent when the notification store changes
type notificationsChangedMsg struct{}

// syncDoneMsg carries the result of a manual sync
type syncDoneMsg struct {
	result *sync.SyncResult
	err    error
}

// insightDoneMsg carries the result of a briefing run started with gen
type insightDoneMsg struct {
	gen int
	res *insight.Result
	err error
}

// Init initializes the model with a tick command
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitForSyncRefresh(), m.waitForNotifications())
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForSyncRefresh listens for sync refresh signals
func (m Model) waitForSyncRefresh() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	ch := m.syncRefreshChan
	return func() tea.Msg {
		<-ch
		return syncRefreshMsg{}
	}
}

// waitForNotifications listens for notification store changes
func (m Model) waitForNotifications() tea.Cmd {
	if m.svc.Notifications == nil {
		return nil
	}
	ch := m.notifyChan
	return func() tea.Msg {
		<-ch
		return notificationsChangedMsg{}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// due-date buckets shift at midnight
		if time.Time(msg).YearDay() != m.loadedDay {
			m.loadData()
		}
		return m, tickCmd()

	case syncRefreshMsg:
		m.loadData()
		m.message = "Synced from server"
		return m, m.waitForSyncRefresh()

	case notificationsChangedMsg:
		m.loadNotifications()
		return m, m.waitForNotifications()

	case syncDoneMsg:
		if msg.err != nil {
			logger.Warn("Manual sync failed", logger.Err(msg.err))
			m.message = fmt.Sprintf("Sync failed: %v", msg.err)
			return m, nil
		}
		m.loadData()
		m.message = fmt.Sprintf("Synced: %d pushed, %d pulled", msg.result.Pushed, msg.result.Pulled)
		return m, nil

	case insightDoneMsg:
		return m.handleInsightDone(msg)

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddTask, ModeAddProject, ModeEditTask:
			return m.updateInput(msg)
		case ModeFilter:
			return m.updateFilter(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.stopBackground()
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp
		return m, nil

	case key.Matches(msg, keys.Escape):
		if m.generating {
			m.cancelInsight()
			m.message = "Briefing cancelled"
			return m, nil
		}
		if m.filterText != "" {
			m.filterText = ""
			m.loadData()
		}
		m.message = ""
		return m, nil

	case key.Matches(msg, keys.Tab):
		m.pane = (m.pane + 1) % 3
		return m, nil

	case key.Matches(msg, keys.Left):
		if m.pane > PaneProjects {
			m.pane--
		}
		return m, nil

	case key.Matches(msg, keys.Right):
		if m.pane < PaneNotifications {
			m.pane++
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, keys.Enter):
		switch m.pane {
		case PaneProjects:
			m.pane = PaneTasks
		case PaneTasks:
			m.toggleDone()
		case PaneNotifications:
			if n := m.currentNotification(); n != nil && !n.Read {
				if err := m.svc.Notifications.MarkRead(n.ID); err != nil {
					m.message = fmt.Sprintf("Error: %v", err)
				}
				m.loadNotifications()
			}
		}
		return m, nil

	case key.Matches(msg, keys.Add):
		if m.currentProject() == nil {
			m.message = "Create a project first (p)"
			return m, nil
		}
		return m.openInput(ModeAddTask, "Task title...", "")

	case key.Matches(msg, keys.Project):
		return m.openInput(ModeAddProject, "Project name...", "")

	case key.Matches(msg, keys.Edit):
		if t := m.currentTask(); t != nil && m.pane == PaneTasks {
			return m.openInput(ModeEditTask, "Task title...", t.Title)
		}
		return m, nil

	case key.Matches(msg, keys.Done):
		if m.pane == PaneTasks {
			m.toggleDone()
		}
		return m, nil

	case key.Matches(msg, keys.Delete):
		m.deleteSelected()
		return m, nil

	case key.Matches(msg, keys.Priority1):
		m.setPriority(model.PriorityHigh)
		return m, nil

	case key.Matches(msg, keys.Priority2):
		m.setPriority(model.PriorityMedium)
		return m, nil

	case key.Matches(msg, keys.Priority3):
		m.setPriority(model.PriorityLow)
		return m, nil

	case key.Matches(msg, keys.Filter):
		m.mode = ModeFilter
		m.input.Placeholder = "search tasks"
		m.input.SetValue(m.filterText)
		m.input.Focus()
		return m, nil

	case key.Matches(msg, keys.AllTasks):
		m.allTasks = !m.allTasks
		m.taskCursor = 0
		m.loadData()
		if m.allTasks {
			m.message = "Showing tasks from all projects"
		} else {
			m.message = "Showing tasks of the selected project"
		}
		return m, nil

	case key.Matches(msg, keys.Generate):
		if m.svc.Insights == nil {
			m.message = "Briefings are not available"
			return m, nil
		}
		cmd := m.startInsight()
		return m, cmd

	case key.Matches(msg, keys.ReadAll):
		if m.svc.Notifications != nil {
			if err := m.svc.Notifications.MarkAllRead(); err != nil {
				m.message = fmt.Sprintf("Error: %v", err)
			}
			m.loadNotifications()
		}
		return m, nil

	case key.Matches(msg, keys.Refresh):
		if m.svc.Notifications != nil {
			m.svc.Notifications.Reload()
		}
		m.loadData()
		if m.syncClient == nil {
			m.message = "Refreshed"
			return m, nil
		}
		m.message = "Syncing..."
		return m, m.syncNow()
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.pane {
	case PaneProjects:
		next := m.projCursor + delta
		if next >= 0 && next < len(m.projects) {
			m.projCursor = next
			m.taskCursor = 0
			m.tasks = m.visibleTasks()
		}
	case PaneTasks:
		next := m.taskCursor + delta
		if next >= 0 && next < len(m.tasks) {
			m.taskCursor = next
		}
	case PaneNotifications:
		next := m.notifyCursor + delta
		if next >= 0 && next < len(m.notifications) {
			m.notifyCursor = next
		}
	}
}

func (m Model) openInput(mode Mode, placeholder, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.Focus()
	return m, nil
}

func (m *Model) toggleDone() {
	t := m.currentTask()
	if t == nil {
		return
	}
	updated := t.Task
	if updated.IsDone() {
		updated.Status = model.TaskTodo
	} else {
		updated.Status = model.TaskDone
	}
	if err := m.svc.Projects.UpdateTask(context.Background(), t.ProjectID, updated); err != nil {
		m.message = fmt.Sprintf("Error: %v", err)
		return
	}
	if updated.IsDone() {
		m.message = fmt.Sprintf("Done: %s", updated.Title)
	} else {
		m.message = fmt.Sprintf("Reopened: %s", updated.Title)
	}
	m.changed()
}

func (m *Model) setPriority(p model.Priority) {
	t := m.currentTask()
	if t == nil || m.pane != PaneTasks {
		return
	}
	updated := t.Task
	updated.Priority = p
	if err := m.svc.Projects.UpdateTask(context.Background(), t.ProjectID, updated); err != nil {
		m.message = fmt.Sprintf("Error: %v", err)
		return
	}
	m.message = fmt.Sprintf("Priority: %s", p)
	m.changed()
}

func (m *Model) deleteSelected() {
	switch m.pane {
	case PaneTasks:
		t := m.currentTask()
		if t == nil {
			return
		}
		if err := m.svc.Projects.DeleteTask(context.Background(), t.ProjectID, t.ID); err != nil {
			m.message = fmt.Sprintf("Error: %v", err)
			return
		}
		m.message = fmt.Sprintf("Deleted: %s", t.Title)
		m.changed()
	case PaneNotifications:
		n := m.currentNotification()
		if n == nil {
			return
		}
		if err := m.svc.Notifications.Delete(n.ID); err != nil {
			m.message = fmt.Sprintf("Error: %v", err)
			return
		}
		m.loadNotifications()
	}
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case msg.Type == tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		mode := m.mode
		m.mode = ModeNormal
		if value == "" {
			return m, nil
		}

		ctx := context.Background()
		switch mode {
		case ModeAddTask:
			proj := m.currentProject()
			if proj == nil {
				return m, nil
			}
			t, err := m.svc.Projects.AddTask(ctx, proj.ID, model.NewTask(value))
			if err != nil {
				m.message = fmt.Sprintf("Error adding task: %v", err)
				return m, nil
			}
			logger.Debug("Task added from dashboard", logger.F("project", proj.ID), logger.F("task", t.ID))
			m.message = fmt.Sprintf("Added: %s", value)
		case ModeAddProject:
			p := model.NewProject(value)
			if err := m.svc.Projects.SaveProject(ctx, &p); err != nil {
				m.message = fmt.Sprintf("Error creating project: %v", err)
				return m, nil
			}
			m.message = fmt.Sprintf("Created project: %s", value)
			m.changed()
			for i := range m.projects {
				if m.projects[i].ID == p.ID {
					m.projCursor = i
				}
			}
			m.tasks = m.visibleTasks()
			return m, nil
		case ModeEditTask:
			t := m.currentTask()
			if t == nil {
				return m, nil
			}
			updated := t.Task
			updated.Title = value
			if err := m.svc.Projects.UpdateTask(ctx, t.ProjectID, updated); err != nil {
				m.message = fmt.Sprintf("Error: %v", err)
				return m, nil
			}
			m.message = fmt.Sprintf("Updated: %s", value)
		}

		m.changed()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.input.Blur()
		m.filterText = ""
		m.loadData()
		return m, nil

	case msg.Type == tea.KeyEnter:
		m.mode = ModeNormal
		m.input.Blur()
		m.pane = PaneTasks
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	// live filter as the user types
	m.filterText = m.input.Value()
	m.taskCursor = 0
	m.tasks = m.visibleTasks()
	return m, cmd
}

// startInsight begins a briefing run; a run already in flight is cancelled
func (m *Model) startInsight() tea.Cmd {
	if m.cancelGen != nil {
		m.cancelGen()
	}
	m.generation++
	gen := m.generation
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelGen = cancel
	m.generating = true
	m.message = "Generating briefing..."

	runner := m.svc.Insights
	run := func() tea.Msg {
		res, err := runner.Run(ctx, insight.TriggerManual)
		return insightDoneMsg{gen: gen, res: res, err: err}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m *Model) cancelInsight() {
	if m.cancelGen != nil {
		m.cancelGen()
		m.cancelGen = nil
	}
	m.generation++
	m.generating = false
}

func (m Model) handleInsightDone(msg insightDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.generation {
		logger.Debug("Dropping stale briefing reply", logger.F("gen", msg.gen), logger.F("current", m.generation))
		return m, nil
	}
	m.generating = false
	if m.cancelGen != nil {
		m.cancelGen()
		m.cancelGen = nil
	}

	switch {
	case errors.Is(msg.err, context.Canceled):
		m.message = "Briefing cancelled"
	case msg.err != nil:
		m.message = fmt.Sprintf("Briefing failed: %v", msg.err)
	case msg.res.Fallback:
		m.message = fmt.Sprintf("Briefing unreadable, added %d general tips", len(msg.res.Notifications))
	default:
		m.message = fmt.Sprintf("Briefing ready: score %d/100, %d notifications",
			msg.res.Insight.ProductivityScore, len(msg.res.Notifications))
	}
	m.loadNotifications()
	if msg.err == nil {
		m.pane = PaneNotifications
		m.notifyCursor = 0
	}
	return m, nil
}

func (m Model) syncNow() tea.Cmd {
	client := m.syncClient
	store := m.svc.Sync
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := client.Sync(ctx, store, sync.SyncModeMerge)
		return syncDoneMsg{result: res, err: err}
	}
}
