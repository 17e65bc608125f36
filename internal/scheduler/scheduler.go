// Package scheduler runs the insight pipeline at most once per day.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/existflow/devpilot/internal/config"
	"github.com/existflow/devpilot/internal/insight"
	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/logger"
)

// State of the scheduler
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending-generation"
)

const (
	DefaultDailyTime = "08:00"
	DefaultRecheck   = 30 * time.Minute
)

// Runner executes one insight pipeline run
type Runner interface {
	Run(ctx context.Context, trigger insight.Trigger) (*insight.Result, error)
}

// Options configures a Scheduler
type Options struct {
	DailyTime string        // HH:MM used until the user picks one
	Recheck   time.Duration // upper bound on the sleep between checks
}

// Status is a snapshot for display
type Status struct {
	State     State
	Enabled   bool
	DailyTime string
	LastRun   time.Time
	NextCheck time.Time
	Due       bool
}

// Scheduler gates the daily run on the opt-in flag, the fire time and the
// persisted date of the last daily run
type Scheduler struct {
	mu        sync.Mutex
	store     localstate.Store
	runner    Runner
	state     State
	dailyTime string
	recheck   time.Duration
	now       func() time.Time
}

// New creates an idle scheduler
func New(store localstate.Store, runner Runner, opts Options) *Scheduler {
	if opts.DailyTime == "" {
		opts.DailyTime = DefaultDailyTime
	}
	if opts.Recheck <= 0 {
		opts.Recheck = DefaultRecheck
	}
	return &Scheduler{
		store:     store,
		runner:    runner,
		state:     StateIdle,
		dailyTime: opts.DailyTime,
		recheck:   opts.Recheck,
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Enable turns the daily run on or off
func (s *Scheduler) Enable(on bool) error {
	if err := localstate.SetBool(s.store, localstate.KeyDailyEnabled, on); err != nil {
		return fmt.Errorf("failed to save daily flag: %w", err)
	}
	if on {
		if _, ok, _ := s.store.Get(localstate.KeyDailyTime); !ok {
			if err := s.store.Set(localstate.KeyDailyTime, s.dailyTime); err != nil {
				return fmt.Errorf("failed to save daily time: %w", err)
			}
		}
	}
	logger.Info("Daily insights toggled", logger.F("enabled", on))
	return nil
}

// SetDailyTime changes the fire time
func (s *Scheduler) SetDailyTime(hhmm string) error {
	if _, _, err := config.ParseDailyTime(hhmm); err != nil {
		return err
	}
	return s.store.Set(localstate.KeyDailyTime, hhmm)
}

// Enabled reports the opt-in flag
func (s *Scheduler) Enabled() bool {
	return localstate.Bool(s.store, localstate.KeyDailyEnabled)
}

// fireTime is today's fire time in now's location. An invalid persisted
// time falls back to the configured default.
func (s *Scheduler) fireTime(now time.Time) time.Time {
	hhmm := localstate.String(s.store, localstate.KeyDailyTime, s.dailyTime)
	h, m, err := config.ParseDailyTime(hhmm)
	if err != nil {
		logger.Warn("Invalid daily time, using default", logger.F("value", hhmm))
		h, m, _ = config.ParseDailyTime(s.dailyTime)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
}

func (s *Scheduler) ranOn(now time.Time) bool {
	last := localstate.Time(s.store, localstate.KeyLastDailyInsight)
	if last.IsZero() {
		return false
	}
	ly, lm, ld := last.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ly == ny && lm == nm && ld == nd
}

// Due reports whether the daily run should happen at now
func (s *Scheduler) Due(now time.Time) bool {
	return s.Enabled() && !now.Before(s.fireTime(now)) && !s.ranOn(now)
}

// NextFireTime is the next instant the gate can open: now when due,
// today's fire time when it is still ahead, else tomorrow's
func (s *Scheduler) NextFireTime(now time.Time) time.Time {
	if s.Due(now) {
		return now
	}
	fire := s.fireTime(now)
	if now.Before(fire) {
		return fire
	}
	return s.fireTime(now.AddDate(0, 0, 1))
}

// CheckAndRun runs the pipeline if the daily run is due and no run is in
// progress. The date is recorded whether the run succeeds or fails, so a
// second call on the same day never reaches the network. A run cut short
// by ctx is not recorded and is retried on the next check.
func (s *Scheduler) CheckAndRun(ctx context.Context) (bool, error) {
	s.mu.Lock()
	now := s.now()
	if s.state != StateIdle || !s.Due(now) {
		s.mu.Unlock()
		return false, nil
	}
	s.state = StatePending
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
	}()

	_, err := s.runner.Run(ctx, insight.TriggerScheduled)
	if ctx.Err() != nil {
		logger.Warn("Scheduled insight run interrupted", logger.Err(ctx.Err()))
		if err == nil {
			err = ctx.Err()
		}
		return true, err
	}
	if serr := localstate.SetTime(s.store, localstate.KeyLastDailyInsight, now); serr != nil {
		logger.Error("Failed to record daily insight date", logger.Err(serr))
	}
	if err != nil {
		logger.Error("Scheduled insight run failed", logger.Err(err))
		return true, err
	}
	return true, nil
}

// TriggerNow runs the pipeline immediately, bypassing the daily gate.
// The daily date is not recorded.
func (s *Scheduler) TriggerNow(ctx context.Context) (*insight.Result, error) {
	return s.runner.Run(ctx, insight.TriggerManual)
}

// Run checks once at start and then again at the next fire time, waking
// at least every recheck interval, until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Info("Scheduler started", logger.F("recheck", s.recheck.String()))
	for {
		_, _ = s.CheckAndRun(ctx)

		s.mu.Lock()
		now := s.now()
		s.mu.Unlock()

		wait := s.recheck
		if s.Enabled() {
			if d := s.NextFireTime(now).Sub(now); d > 0 && d < wait {
				wait = d
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Status returns the current scheduler state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	now := s.now()
	state := s.state
	s.mu.Unlock()

	return Status{
		State:     state,
		Enabled:   s.Enabled(),
		DailyTime: localstate.String(s.store, localstate.KeyDailyTime, s.dailyTime),
		LastRun:   localstate.Time(s.store, localstate.KeyLastDailyInsight),
		NextCheck: s.NextFireTime(now),
		Due:       s.Due(now),
	}
}
