// Package notify keeps the bounded, newest-first notification list.
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/existflow/devpilot/internal/localstate"
	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/metrics"
	"github.com/existflow/devpilot/internal/model"
	"github.com/google/uuid"
)

// MaxNotifications is the retention bound of the list
const MaxNotifications = 50

// DefaultPruneAge is the age used by the prune command when none is given
const DefaultPruneAge = 7 * 24 * time.Hour

// ErrNotFound is returned when no notification has the given id
var ErrNotFound = errors.New("notification not found")

// Store holds the notification list and writes it through to local state
// after every mutation
type Store struct {
	mu        sync.Mutex
	state     localstate.Store
	items     []model.Notification
	listeners []func()
	now       func() time.Time
}

// NewStore loads the persisted list. Missing or corrupt state starts empty.
func NewStore(state localstate.Store) *Store {
	s := &Store{state: state, now: time.Now}
	var items []model.Notification
	if localstate.LoadJSON(state, localstate.KeyNotifications, &items) {
		if len(items) > MaxNotifications {
			items = items[:MaxNotifications]
		}
		s.items = items
	}
	if s.items == nil {
		s.items = []model.Notification{}
	}
	s.report()
	return s
}

// SetClock replaces the time source
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Subscribe registers fn to be called after every change
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Add prepends n, evicting the oldest entries beyond MaxNotifications.
// Missing ids and timestamps are filled in, and a timestamp earlier than
// the current newest entry is raised to it so the list stays ordered.
// The in-memory list is updated even when persisting fails.
func (s *Store) Add(n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	err := s.mutate(func(items []model.Notification) ([]model.Notification, error) {
		if n.Timestamp.IsZero() {
			n.Timestamp = s.now()
		}
		if len(items) > 0 && n.Timestamp.Before(items[0].Timestamp) {
			n.Timestamp = items[0].Timestamp
		}
		out := make([]model.Notification, 0, MaxNotifications)
		out = append(out, n)
		return append(out, items...), nil
	})
	return n, err
}

// List returns a copy of the notifications, newest first
func (s *Store) List() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount returns the number of unread notifications
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked()
}

// Reload replaces the in-memory list with the persisted one, picking up
// changes made by other processes
func (s *Store) Reload() {
	var items []model.Notification
	if !localstate.LoadJSON(s.state, localstate.KeyNotifications, &items) {
		return
	}
	if len(items) > MaxNotifications {
		items = items[:MaxNotifications]
	}
	s.mu.Lock()
	s.items = items
	s.reportLocked()
	s.mu.Unlock()
}

// MarkRead marks one notification as read
func (s *Store) MarkRead(id string) error {
	return s.mutate(func(items []model.Notification) ([]model.Notification, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].Read = true
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
}

// MarkAllRead marks every notification as read
func (s *Store) MarkAllRead() error {
	return s.mutate(func(items []model.Notification) ([]model.Notification, error) {
		for i := range items {
			items[i].Read = true
		}
		return items, nil
	})
}

// Delete removes one notification
func (s *Store) Delete(id string) error {
	return s.mutate(func(items []model.Notification) ([]model.Notification, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

// DeleteOlderThan removes notifications older than age and returns how
// many were removed
func (s *Store) DeleteOlderThan(age time.Duration) (int, error) {
	removed := 0
	err := s.mutate(func(items []model.Notification) ([]model.Notification, error) {
		removed = 0
		cutoff := s.now().Add(-age)
		kept := items[:0]
		for _, n := range items {
			if n.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, n)
		}
		return kept, nil
	})
	return removed, err
}

// Clear removes every notification
func (s *Store) Clear() error {
	return s.mutate(func([]model.Notification) ([]model.Notification, error) {
		return []model.Notification{}, nil
	})
}

// mutate applies fn to the persisted list as it is now, so changes made
// by other processes since this store loaded are kept. When local state
// cannot be read fn is applied to the in-memory list instead.
func (s *Store) mutate(fn func(items []model.Notification) ([]model.Notification, error)) error {
	s.mu.Lock()
	applied := false
	var opErr error
	err := localstate.UpdateJSON(s.state, localstate.KeyNotifications, func(items *[]model.Notification) error {
		next, err := fn(bounded(*items))
		if err != nil {
			opErr = err
			return err
		}
		next = bounded(next)
		*items = next
		s.items = next
		applied = true
		return nil
	})
	if opErr != nil {
		s.mu.Unlock()
		return opErr
	}
	if !applied {
		cached := make([]model.Notification, len(s.items))
		copy(cached, s.items)
		next, fnErr := fn(cached)
		if fnErr != nil {
			s.mu.Unlock()
			return fnErr
		}
		s.items = bounded(next)
	}
	s.reportLocked()
	s.mu.Unlock()

	if err != nil {
		logger.Error("Failed to persist notifications", logger.Err(err))
	}
	s.notify()
	return err
}

func bounded(items []model.Notification) []model.Notification {
	if items == nil {
		return []model.Notification{}
	}
	if len(items) > MaxNotifications {
		return items[:MaxNotifications]
	}
	return items
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (s *Store) report() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportLocked()
}

func (s *Store) reportLocked() {
	metrics.SetNotifications(len(s.items), s.unreadLocked())
}

func (s *Store) unreadLocked() int {
	n := 0
	for _, item := range s.items {
		if !item.Read {
			n++
		}
	}
	return n
}
