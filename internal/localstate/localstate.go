// Package localstate holds small persisted values stored as text under
// fixed keys: the notification list, chat sessions, the API credential and
// preference flags.
package localstate

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/existflow/devpilot/internal/logger"
)

// Fixed keys
const (
	KeyNotifications    = "notifications"
	KeyChatSessions     = "gemini_chat_sessions"
	KeyAPIKey           = "gemini_api_key"
	KeyDailyEnabled     = "dailyNotificationsEnabled"
	KeyDailyTime        = "dailyNotificationTime"
	KeyLastDailyInsight = "lastDailyInsight"
	KeyCurrentSession   = "gemini_current_session"
	KeyDefaultProject   = "defaultProject"
)

// Store is a string key/value store
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Updater is implemented by stores that can replace a value based on its
// current content without another writer interleaving
type Updater interface {
	Update(key string, fn func(value string, ok bool) (string, error)) error
}

// LoadJSON decodes the value under key into v.
// Missing keys, read failures and corrupt JSON leave v untouched and
// report false; callers keep their defaults.
func LoadJSON(s Store, key string, v interface{}) bool {
	raw, ok, err := s.Get(key)
	if err != nil {
		logger.Warn("Failed to read local state", logger.F("key", key), logger.Err(err))
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logger.Warn("Ignoring corrupt local state", logger.F("key", key), logger.Err(err))
		return false
	}
	return true
}

// SaveJSON encodes v and stores it under key
func SaveJSON(s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(key, string(data))
}

// Update stores the result of fn applied to the current value under key.
// An error from fn leaves the value unchanged. Stores that are not an
// Updater fall back to a plain read followed by a write.
func Update(s Store, key string, fn func(value string, ok bool) (string, error)) error {
	if u, ok := s.(Updater); ok {
		return u.Update(key, fn)
	}
	value, ok, err := s.Get(key)
	if err != nil {
		return err
	}
	next, err := fn(value, ok)
	if err != nil {
		return err
	}
	return s.Set(key, next)
}

// UpdateJSON decodes the value under key, lets fn modify it and stores
// the result within one Update. Missing or corrupt values decode as the
// zero value of T.
func UpdateJSON[T any](s Store, key string, fn func(v *T) error) error {
	return Update(s, key, func(raw string, ok bool) (string, error) {
		var v T
		if ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				logger.Warn("Replacing corrupt local state", logger.F("key", key), logger.Err(err))
				v = *new(T)
			}
		}
		if err := fn(&v); err != nil {
			return "", err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
}

// Bool reads a boolean flag, false when missing or invalid
func Bool(s Store, key string) bool {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false
	}
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}

// SetBool stores a boolean flag
func SetBool(s Store, key string, v bool) error {
	return s.Set(key, strconv.FormatBool(v))
}

// Time reads an RFC3339 timestamp, zero when missing or invalid
func Time(s Store, key string) time.Time {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetTime stores a timestamp as RFC3339
func SetTime(s Store, key string, t time.Time) error {
	return s.Set(key, t.Format(time.RFC3339))
}

// String reads a plain value, def when missing
func String(s Store, key, def string) string {
	raw, ok, err := s.Get(key)
	if err != nil || !ok || raw == "" {
		return def
	}
	return raw
}

// Memory is an in-process Store
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get returns the value for key
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Update replaces the value under key while holding the store lock.
// fn must not call back into m.
func (m *Memory) Update(key string, fn func(value string, ok bool) (string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	next, err := fn(v, ok)
	if err != nil {
		return err
	}
	m.data[key] = next
	return nil
}

// Delete removes key
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
