package sync

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/devpilot/internal/logger"
)

// Watcher keeps the local store in step with the server: it polls for
// remote changes and pushes local edits after a quiet period
type Watcher struct {
	client       *Client
	store        Store
	debounceTime time.Duration
	pollInterval time.Duration

	mu       sync.Mutex
	pending  bool
	onChange func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher; nothing runs until Run is called
func NewWatcher(client *Client, store Store) *Watcher {
	return &Watcher{
		client:       client,
		store:        store,
		debounceTime: 5 * time.Second,
		pollInterval: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// SetIntervals overrides the debounce and poll periods
func (w *Watcher) SetIntervals(debounce, poll time.Duration) {
	w.debounceTime = debounce
	w.pollInterval = poll
}

// SetOnChange sets the callback invoked when remote changes were applied
func (w *Watcher) SetOnChange(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Run polls for remote changes until ctx is cancelled or Stop is called
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if w.client.CanAutoSync() {
				w.poll(ctx)
			}
		case <-ctx.Done():
			w.Stop()
			return nil
		case <-w.stopCh:
			return nil
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	result, err := w.client.Sync(ctx, w.store, SyncModeMerge)
	if err != nil {
		logger.Warn("Background sync failed", logger.Err(err))
		return
	}
	if result.Pulled > 0 {
		w.mu.Lock()
		callback := w.onChange
		w.mu.Unlock()

		if callback != nil {
			callback()
		}
	}
}

// TriggerSync schedules a push after the debounce period
func (w *Watcher) TriggerSync() {
	if !w.client.CanAutoSync() {
		return
	}

	w.mu.Lock()
	if !w.pending {
		w.pending = true
		go w.debouncedSync()
	}
	w.mu.Unlock()
}

func (w *Watcher) debouncedSync() {
	timer := time.NewTimer(w.debounceTime)
	defer timer.Stop()

	select {
	case <-timer.C:
		w.mu.Lock()
		w.pending = false
		w.mu.Unlock()
		w.poll(context.Background())
	case <-w.stopCh:
	}
}

// Stop ends polling and cancels a pending debounced sync
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// SyncNowIfPending runs a pending sync immediately
func (w *Watcher) SyncNowIfPending(ctx context.Context) error {
	w.mu.Lock()
	isPending := w.pending
	w.pending = false
	w.mu.Unlock()

	if !isPending {
		return nil
	}
	_, err := w.client.Sync(ctx, w.store, SyncModeMerge)
	return err
}

// IsPending returns true if a sync is scheduled
func (w *Watcher) IsPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}
