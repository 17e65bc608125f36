package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/devpilot/internal/config"
	"github.com/existflow/devpilot/internal/insight"
	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/scheduler"
	"github.com/existflow/devpilot/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct{ runs int }

func (c *countingRunner) Run(ctx context.Context, trigger insight.Trigger) (*insight.Result, error) {
	c.runs++
	return &insight.Result{}, nil
}

func daemonApp(t *testing.T) (*App, *countingRunner) {
	t.Helper()
	runner := &countingRunner{}
	sched := scheduler.New(localstate.NewMemory(), runner, scheduler.Options{})
	require.NoError(t, sched.Enable(true))
	sched.SetClock(func() time.Time { return time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC) })
	return &App{Config: config.DefaultConfig(), Scheduler: sched}, runner
}

func TestDaemonWorkersFailBeforeStarting(t *testing.T) {
	app, runner := daemonApp(t)

	workers, err := daemonWorkers(app, false, "", func() (*sync.Client, error) {
		return nil, errors.New("no home directory")
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "no home directory")
	assert.Nil(t, workers)
	assert.Zero(t, runner.runs)
}

func TestDaemonWorkers(t *testing.T) {
	app, runner := daemonApp(t)

	workers, err := daemonWorkers(app, true, "", nil)
	require.NoError(t, err)
	assert.Len(t, workers, 1)

	loggedOut := func() (*sync.Client, error) {
		return sync.NewClientAt(filepath.Join(t.TempDir(), "sync.json"), nil), nil
	}
	workers, err = daemonWorkers(app, false, "127.0.0.1:0", loggedOut)
	require.NoError(t, err)
	assert.Len(t, workers, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, workers[0](ctx))
	assert.Equal(t, 1, runner.runs)
}
