package notify

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/devpilot/internal/db"
	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *localstate.Memory) {
	t.Helper()
	mem := localstate.NewMemory()
	s := NewStore(mem)
	s.SetClock(func() time.Time { return base })
	return s, mem
}

func note(id string, at time.Time) model.Notification {
	return model.Notification{ID: id, Type: model.NotifyDailyInsight, Title: "t", Message: id, Priority: model.NotifyMedium, Timestamp: at}
}

func TestAddKeepsNewestFifty(t *testing.T) {
	s, mem := newTestStore(t)

	for i := 0; i < 51; i++ {
		_, err := s.Add(note(fmt.Sprintf("n%02d", i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	items := s.List()
	require.Len(t, items, MaxNotifications)
	assert.Equal(t, "n50", items[0].ID)
	assert.Equal(t, "n01", items[len(items)-1].ID)
	for _, n := range items {
		assert.NotEqual(t, "n00", n.ID)
	}

	// write-through
	reloaded := NewStore(mem)
	assert.Equal(t, items, reloaded.List())
}

func TestAddFillsDefaultsAndOrdersTimestamps(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.Add(model.Notification{Title: "first"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, base, first.Timestamp)

	_, err = s.Add(note("late", base.Add(time.Hour)))
	require.NoError(t, err)
	early, err := s.Add(note("early", base.Add(-time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), early.Timestamp)

	items := s.List()
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].Timestamp.After(items[i-1].Timestamp))
	}
}

func TestReadAndDelete(t *testing.T) {
	s, _ := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Add(note(id, base))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.UnreadCount())

	require.NoError(t, s.MarkRead("b"))
	assert.Equal(t, 2, s.UnreadCount())
	assert.ErrorIs(t, s.MarkRead("missing"), ErrNotFound)

	require.NoError(t, s.Delete("a"))
	assert.Len(t, s.List(), 2)
	assert.ErrorIs(t, s.Delete("a"), ErrNotFound)

	require.NoError(t, s.MarkAllRead())
	assert.Zero(t, s.UnreadCount())

	require.NoError(t, s.Clear())
	assert.Empty(t, s.List())
}

func TestDeleteOlderThan(t *testing.T) {
	s, _ := newTestStore(t)
	_, _ = s.Add(note("old", base.Add(-10*24*time.Hour)))
	_, _ = s.Add(note("new", base.Add(-24*time.Hour)))

	removed, err := s.DeleteOlderThan(DefaultPruneAge)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	items := s.List()
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	mem := localstate.NewMemory()
	require.NoError(t, mem.Set(localstate.KeyNotifications, "{not json"))

	s := NewStore(mem)
	assert.Empty(t, s.List())
	assert.NotNil(t, s.List())
}

func TestSubscribe(t *testing.T) {
	s, _ := newTestStore(t)
	calls := 0
	s.Subscribe(func() { calls++ })

	_, _ = s.Add(note("a", base))
	_ = s.MarkAllRead()
	_ = s.MarkRead("missing")
	assert.Equal(t, 2, calls)
}

type failingState struct{ *localstate.Memory }

func (failingState) Set(key, value string) error { return errors.New("disk full") }

func (failingState) Update(key string, fn func(string, bool) (string, error)) error {
	return errors.New("disk full")
}

func TestAddKeepsInMemoryOnPersistFailure(t *testing.T) {
	s := NewStore(failingState{localstate.NewMemory()})

	_, err := s.Add(note("a", base))
	require.Error(t, err)
	assert.Len(t, s.List(), 1)
}

func ids(items []model.Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func TestStoresSharingDatabaseKeepEachOthersChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	open := func() *Store {
		database, err := db.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = database.Close() })
		s := NewStore(database.State())
		s.SetClock(func() time.Time { return base })
		return s
	}

	daemon := open()
	cli := open()

	_, err := cli.Add(note("from-cli", base))
	require.NoError(t, err)
	_, err = daemon.Add(note("from-daemon", base.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, []string{"from-daemon", "from-cli"}, ids(daemon.List()))

	require.NoError(t, cli.MarkRead("from-daemon"))
	require.NoError(t, daemon.Delete("from-cli"))

	fresh := open()
	items := fresh.List()
	require.Len(t, items, 1)
	assert.Equal(t, "from-daemon", items[0].ID)
	assert.True(t, items[0].Read)

	assert.Len(t, cli.List(), 2)
	cli.Reload()
	assert.Equal(t, []string{"from-daemon"}, ids(cli.List()))
}
