package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/existflow/devpilot/internal/insight"
	"github.com/existflow/devpilot/internal/localstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	mu       sync.Mutex
	triggers []insight.Trigger
	err      error
}

func (c *countingRunner) Run(ctx context.Context, trigger insight.Trigger) (*insight.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggers = append(c.triggers, trigger)
	return &insight.Result{}, c.err
}

func (c *countingRunner) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.triggers)
}

func at(day, hour, min int) time.Time {
	return time.Date(2026, 7, day, hour, min, 0, 0, time.UTC)
}

func newScheduler(t *testing.T, now *time.Time) (*Scheduler, *countingRunner, *localstate.Memory) {
	t.Helper()
	mem := localstate.NewMemory()
	runner := &countingRunner{}
	s := New(mem, runner, Options{})
	s.SetClock(func() time.Time { return *now })
	return s, runner, mem
}

func TestDue(t *testing.T) {
	now := at(1, 9, 0)
	s, _, mem := newScheduler(t, &now)

	assert.False(t, s.Due(now), "disabled by default")

	require.NoError(t, s.Enable(true))
	assert.False(t, s.Due(at(1, 7, 59)))
	assert.True(t, s.Due(at(1, 8, 0)))
	assert.True(t, s.Due(at(1, 23, 0)))

	require.NoError(t, localstate.SetTime(mem, localstate.KeyLastDailyInsight, at(1, 8, 1)))
	assert.False(t, s.Due(at(1, 23, 0)))
	assert.True(t, s.Due(at(2, 8, 0)))
}

func TestCheckAndRunOncePerDay(t *testing.T) {
	now := at(1, 8, 30)
	s, runner, _ := newScheduler(t, &now)
	require.NoError(t, s.Enable(true))

	ran, err := s.CheckAndRun(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	now = at(1, 18, 0)
	ran, err = s.CheckAndRun(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, runner.calls())
	assert.Equal(t, insight.TriggerScheduled, runner.triggers[0])

	now = at(2, 8, 0)
	ran, _ = s.CheckAndRun(context.Background())
	assert.True(t, ran)
	assert.Equal(t, 2, runner.calls())
}

func TestCheckAndRunRecordsDateOnFailure(t *testing.T) {
	now := at(3, 9, 0)
	s, runner, mem := newScheduler(t, &now)
	runner.err = errors.New("remote down")
	require.NoError(t, s.Enable(true))

	ran, err := s.CheckAndRun(context.Background())
	assert.True(t, ran)
	require.Error(t, err)
	assert.Equal(t, now, localstate.Time(mem, localstate.KeyLastDailyInsight))

	ran, err = s.CheckAndRun(context.Background())
	assert.False(t, ran)
	assert.NoError(t, err)
	assert.Equal(t, 1, runner.calls())
	assert.Equal(t, StateIdle, s.Status().State)
}

func TestCheckAndRunInterruptedIsRetried(t *testing.T) {
	now := at(4, 8, 0)
	s, runner, mem := newScheduler(t, &now)
	runner.err = context.Canceled
	require.NoError(t, s.Enable(true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran, err := s.CheckAndRun(ctx)
	assert.True(t, ran)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, localstate.Time(mem, localstate.KeyLastDailyInsight).IsZero())
	assert.True(t, s.Due(now))

	runner.err = nil
	ran, err = s.CheckAndRun(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, runner.calls())
	assert.False(t, s.Due(now))
}

func TestTriggerNowBypassesGate(t *testing.T) {
	now := at(4, 6, 0)
	s, runner, mem := newScheduler(t, &now)

	_, err := s.TriggerNow(context.Background())
	require.NoError(t, err)
	_, err = s.TriggerNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []insight.Trigger{insight.TriggerManual, insight.TriggerManual}, runner.triggers)
	assert.True(t, localstate.Time(mem, localstate.KeyLastDailyInsight).IsZero())
}

func TestNextFireTime(t *testing.T) {
	now := at(5, 7, 0)
	s, _, mem := newScheduler(t, &now)
	require.NoError(t, s.Enable(true))

	assert.Equal(t, at(5, 8, 0), s.NextFireTime(at(5, 7, 0)))
	assert.Equal(t, at(5, 9, 0), s.NextFireTime(at(5, 9, 0)), "due now")

	require.NoError(t, localstate.SetTime(mem, localstate.KeyLastDailyInsight, at(5, 8, 0)))
	assert.Equal(t, at(6, 8, 0), s.NextFireTime(at(5, 9, 0)))

	require.NoError(t, s.SetDailyTime("18:30"))
	assert.Equal(t, at(5, 18, 30), s.NextFireTime(at(5, 9, 0)))
	assert.Error(t, s.SetDailyTime("25:00"))
}

func TestInvalidPersistedTimeFallsBack(t *testing.T) {
	now := at(6, 8, 0)
	s, _, mem := newScheduler(t, &now)
	require.NoError(t, s.Enable(true))
	require.NoError(t, mem.Set(localstate.KeyDailyTime, "soon"))

	assert.True(t, s.Due(at(6, 8, 0)))
	assert.False(t, s.Due(at(6, 7, 0)))
}

func TestRunStopsOnCancel(t *testing.T) {
	now := at(7, 8, 0)
	s, runner, _ := newScheduler(t, &now)
	require.NoError(t, s.Enable(true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
