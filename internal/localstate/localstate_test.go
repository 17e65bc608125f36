package localstate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONKeepsDefaultOnCorruptValue(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Set(KeyNotifications, "{not json"))

	list := []string{"default"}
	assert.False(t, LoadJSON(s, KeyNotifications, &list))
	assert.Equal(t, []string{"default"}, list)

	assert.False(t, LoadJSON(s, "missing", &list))
}

func TestJSONRoundTrip(t *testing.T) {
	s := NewMemory()
	require.NoError(t, SaveJSON(s, KeyChatSessions, map[string]int{"a": 1}))

	var got map[string]int
	require.True(t, LoadJSON(s, KeyChatSessions, &got))
	assert.Equal(t, 1, got["a"])
}

func TestFlagsAndTimes(t *testing.T) {
	s := NewMemory()
	assert.False(t, Bool(s, KeyDailyEnabled))

	require.NoError(t, SetBool(s, KeyDailyEnabled, true))
	assert.True(t, Bool(s, KeyDailyEnabled))

	require.NoError(t, s.Set(KeyDailyEnabled, "yes please"))
	assert.False(t, Bool(s, KeyDailyEnabled))

	ts := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, SetTime(s, KeyLastDailyInsight, ts))
	assert.True(t, ts.Equal(Time(s, KeyLastDailyInsight)))

	require.NoError(t, s.Delete(KeyLastDailyInsight))
	assert.True(t, Time(s, KeyLastDailyInsight).IsZero())

	assert.Equal(t, "08:00", String(s, KeyDailyTime, "08:00"))
}

// plainStore hides Memory's Update
type plainStore struct{ m *Memory }

func (p plainStore) Get(key string) (string, bool, error) { return p.m.Get(key) }
func (p plainStore) Set(key, value string) error { return p.m.Set(key, value) }
func (p plainStore) Delete(key string) error { return p.m.Delete(key) }

func TestUpdateJSON(t *testing.T) {
	for name, s := range map[string]Store{"updater": NewMemory(), "plain": plainStore{NewMemory()}} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(KeyNotifications, "{not json"))
			require.NoError(t, UpdateJSON(s, KeyNotifications, func(list *[]string) error {
				assert.Empty(t, *list)
				*list = append(*list, "a")
				return nil
			}))
			require.NoError(t, UpdateJSON(s, KeyNotifications, func(list *[]string) error {
				*list = append(*list, "b")
				return nil
			}))

			boom := errors.New("boom")
			err := UpdateJSON(s, KeyNotifications, func(list *[]string) error {
				*list = nil
				return boom
			})
			assert.ErrorIs(t, err, boom)

			var got []string
			require.True(t, LoadJSON(s, KeyNotifications, &got))
			assert.Equal(t, []string{"a", "b"}, got)
		})
	}
}
