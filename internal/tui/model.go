package tui

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/existflow/devpilot/internal/insight"
	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/model"
	"github.com/existflow/devpilot/internal/sync"
)

// Pane represents which pane is focused
type Pane int

const (
	PaneProjects Pane = iota
	PaneTasks
	PaneNotifications
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeAddProject
	ModeEditTask
	ModeFilter
	ModeHelp
)

// ProjectStore is the subset of the project database the dashboard edits
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	SaveProject(ctx context.Context, p *model.Project) error
	AddTask(ctx context.Context, projectID string, t model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, projectID string, t model.Task) error
	DeleteTask(ctx context.Context, projectID, taskID string) error
}

// NotificationStore is the notification list shown in the right pane
type NotificationStore interface {
	List() []model.Notification
	UnreadCount() int
	MarkRead(id string) error
	MarkAllRead() error
	Delete(id string) error
	Subscribe(fn func())
	Reload()
}

// InsightRunner generates the briefing on demand
type InsightRunner interface {
	Run(ctx context.Context, trigger insight.Trigger) (*insight.Result, error)
}

// Services are the collaborators the dashboard works against.
// Sync is optional; when set and logged in, changes sync in the background.
type Services struct {
	Projects      ProjectStore
	Notifications NotificationStore
	Insights      InsightRunner
	Sync          sync.Store
}

// Model is the main TUI model
type Model struct {
	svc           Services
	projects      []model.Project
	tasks         []model.ProjectTask // tasks shown in the task pane
	notifications []model.Notification

	// Sync
	syncClient      *sync.Client
	watcher         *sync.Watcher
	syncRefreshChan chan struct{}
	notifyChan      chan struct{}

	// UI state
	width        int
	height       int
	pane         Pane
	mode         Mode
	projCursor   int
	taskCursor   int
	notifyCursor int
	allTasks     bool // task pane lists every project instead of the selected one
	loadedDay    int

	input      textinput.Model
	filterText string

	// Insight generation. Replies carrying an older generation are dropped.
	generation int
	generating bool
	cancelGen  context.CancelFunc
	spinner    spinner.Model

	message string
	now     func() time.Time
}

// NewModel creates a new TUI model
func NewModel(svc Services) Model {
	logger.Info("Initializing TUI model")

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	m := Model{
		svc:             svc,
		pane:            PaneProjects,
		mode:            ModeNormal,
		input:           ti,
		spinner:         sp,
		syncRefreshChan: make(chan struct{}, 1),
		notifyChan:      make(chan struct{}, 1),
		now:             time.Now,
	}

	if svc.Notifications != nil {
		ch := m.notifyChan
		svc.Notifications.Subscribe(func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
	}

	if svc.Sync != nil {
		m.startSync()
	}

	m.loadData()
	logger.Debug("TUI model initialized",
		logger.F("projects", len(m.projects)),
		logger.F("tasks", len(m.tasks)))
	return m
}

func (m *Model) startSync() {
	client, err := sync.NewClient()
	if err != nil {
		logger.Debug("Sync client not initialized", logger.Err(err))
		return
	}
	if !client.CanAutoSync() {
		logger.Debug("Sync client not logged in")
		return
	}

	m.syncClient = client
	m.watcher = sync.NewWatcher(client, m.svc.Sync)
	ch := m.syncRefreshChan
	m.watcher.SetOnChange(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	go func() {
		if err := m.watcher.Run(context.Background()); err != nil {
			logger.Warn("Background sync stopped", logger.Err(err))
		}
	}()
	logger.Info("Background sync started")
}

// loadData reloads projects, tasks and notifications, keeping cursors in range
func (m *Model) loadData() {
	projects, err := m.svc.Projects.ListProjects(context.Background())
	if err != nil {
		logger.Error("Failed to load projects", logger.Err(err))
		m.message = "Error loading projects: " + err.Error()
	}
	m.projects = projects
	if m.projCursor >= len(m.projects) {
		m.projCursor = max(len(m.projects)-1, 0)
	}

	m.tasks = m.visibleTasks()
	if m.taskCursor >= len(m.tasks) {
		m.taskCursor = max(len(m.tasks)-1, 0)
	}

	m.loadNotifications()
	m.loadedDay = m.now().YearDay()
}

func (m *Model) loadNotifications() {
	if m.svc.Notifications == nil {
		return
	}
	m.notifications = m.svc.Notifications.List()
	if m.notifyCursor >= len(m.notifications) {
		m.notifyCursor = max(len(m.notifications)-1, 0)
	}
}

// visibleTasks returns the task pane contents: open tasks sorted by
// urgency, then completed tasks
func (m *Model) visibleTasks() []model.ProjectTask {
	now := m.now()
	var source []model.Project
	if m.allTasks {
		source = m.projects
	} else if p := m.currentProject(); p != nil {
		source = []model.Project{*p}
	}

	tasks := model.CollectTasks(source, true, now)
	if m.filterText != "" {
		tasks = model.FilterTasks(tasks, model.TaskFilter{Search: m.filterText})
	}
	model.SortTasksByUrgency(tasks, now)
	sort.SliceStable(tasks, func(i, j int) bool {
		return !tasks[i].IsDone() && tasks[j].IsDone()
	})
	return tasks
}

func (m *Model) currentProject() *model.Project {
	if len(m.projects) == 0 || m.projCursor >= len(m.projects) {
		return nil
	}
	return &m.projects[m.projCursor]
}

func (m *Model) currentTask() *model.ProjectTask {
	if len(m.tasks) == 0 || m.taskCursor >= len(m.tasks) {
		return nil
	}
	return &m.tasks[m.taskCursor]
}

func (m *Model) currentNotification() *model.Notification {
	if len(m.notifications) == 0 || m.notifyCursor >= len(m.notifications) {
		return nil
	}
	return &m.notifications[m.notifyCursor]
}

// changed reloads the view and schedules a background push
func (m *Model) changed() {
	if m.watcher != nil {
		m.watcher.TriggerSync()
	}
	m.loadData()
}

func (m *Model) stopBackground() {
	if m.cancelGen != nil {
		m.cancelGen()
		m.cancelGen = nil
	}
	if m.watcher != nil {
		m.watcher.Stop()
	}
}
