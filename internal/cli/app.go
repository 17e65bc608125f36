package cli

import (
	"fmt"

	"github.com/existflow/devpilot/internal/chat"
	"github.com/existflow/devpilot/internal/config"
	"github.com/existflow/devpilot/internal/db"
	"github.com/existflow/devpilot/internal/gemini"
	"github.com/existflow/devpilot/internal/insight"
	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/notify"
	"github.com/existflow/devpilot/internal/scheduler"
)

// App bundles the services a command needs. Every command opens its own
// App and closes it on return.
type App struct {
	Config        *config.Config
	DB            *db.DB
	State         localstate.Store
	Gemini        *gemini.Client
	Notifications *notify.Store
	Pipeline      *insight.Pipeline
	Scheduler     *scheduler.Scheduler
	Chat          *chat.Service
	Drafter       *insight.Drafter
}

// loadConfig returns the saved config, or defaults when it cannot be read
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("Failed to load config, using defaults", logger.Err(err))
		return config.DefaultConfig()
	}
	return cfg
}

// openDB opens the configured database, or the default one
func openDB(cfg *config.Config) (*db.DB, error) {
	if cfg.DBPath != "" {
		return db.Open(cfg.DBPath)
	}
	return db.OpenDefault()
}

// openApp opens the database and wires the assistant services on top of it
func openApp() (*App, error) {
	cfg := loadConfig()

	database, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	state := database.State()
	client := gemini.NewClient(gemini.Config{
		Endpoint: cfg.GeminiEndpoint,
		Model:    cfg.GeminiModel,
		Timeout:  cfg.Timeout(),
	}, gemini.WithKeySource(func() string {
		return localstate.String(state, localstate.KeyAPIKey, "")
	}))

	notifications := notify.NewStore(state)
	pipeline := insight.NewPipeline(database, client, notifications)
	sched := scheduler.New(state, pipeline, scheduler.Options{
		DailyTime: cfg.DailyTime,
		Recheck:   cfg.Recheck(),
	})

	return &App{
		Config:        cfg,
		DB:            database,
		State:         state,
		Gemini:        client,
		Notifications: notifications,
		Pipeline:      pipeline,
		Scheduler:     sched,
		Chat:          chat.NewService(state, client, pipeline, sched),
		Drafter:       insight.NewDrafter(client),
	}, nil
}

// Close releases the database
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		logger.Warn("Failed to close database", logger.Err(err))
	}
}

// requireAPIKey fails early with a hint when no credential is stored
func (a *App) requireAPIKey() error {
	if !a.Gemini.Configured() {
		return fmt.Errorf("no API key configured, run 'devpilot config set-key' first")
	}
	return nil
}
