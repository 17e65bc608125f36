package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/model"
	"github.com/existflow/devpilot/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "héll…", truncate("héllo wörld", 5))
}

func TestFormatDue(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "-", formatDue("", now))
	assert.Equal(t, "🔴 2026-04-09 (Overdue)", formatDue("2026-04-09", now))
	assert.Equal(t, "🟠 2026-04-10 (Due today)", formatDue("2026-04-10", now))
	assert.Equal(t, "not a date", formatDue("not a date", now))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", relativeTime(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", relativeTime(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", relativeTime(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", relativeTime(now.Add(-48*time.Hour), now))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", progressBar(50, 10))
	assert.Equal(t, "██████████", progressBar(150, 10))
	assert.Equal(t, "░░░░░░░░░░", progressBar(-5, 10))
}

func TestResolveNotification(t *testing.T) {
	store := notify.NewStore(localstate.NewMemory())
	for _, id := range []string{"abc123", "abd456", "xyz789"} {
		_, err := store.Add(model.Notification{ID: id, Title: id, Message: id})
		require.NoError(t, err)
	}

	n, err := resolveNotification(store, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz789", n.ID)

	n, err = resolveNotification(store, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", n.ID)

	_, err = resolveNotification(store, "ab")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveNotification(store, "zzz")
	assert.True(t, errors.Is(err, notify.ErrNotFound))
}

func TestProjectRefFallsBackToContext(t *testing.T) {
	state := localstate.NewMemory()
	assert.Equal(t, "", projectRefOr(state, ""))

	require.NoError(t, state.Set(localstate.KeyDefaultProject, "storefront"))
	assert.Equal(t, "storefront", projectRefOr(state, ""))
	assert.Equal(t, "api", projectRefOr(state, "api"))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"project", "task", "stats", "calendar", "notify", "insight", "chat", "config", "daemon", "sync"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
