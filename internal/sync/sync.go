package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/model"
)

// SyncItem is a project document on the wire. Data holds the document
// JSON, or its sealed form when Encrypted is set.
type SyncItem struct {
	ClientID    string `json:"client_id"`
	Data        string `json:"data"`
	Encrypted   bool   `json:"encrypted"`
	SyncVersion int64  `json:"sync_version"`
	Deleted     bool   `json:"deleted"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// SyncPullResponse is the response from pull
type SyncPullResponse struct {
	Items       []SyncItem `json:"items"`
	SyncVersion int64      `json:"sync_version"`
}

// SyncPushRequest is the body of a push
type SyncPushRequest struct {
	Items []SyncItem `json:"items"`
}

// SyncPushResponse is the response from push
type SyncPushResponse struct {
	Updated []SyncItem `json:"updated"`
}

// SyncResult holds sync statistics
type SyncResult struct {
	Pushed int
	Pulled int
}

// SyncMode defines how the sync should be performed
type SyncMode int

const (
	SyncModeMerge         SyncMode = iota // push local, then pull remote
	SyncModeRemoteToLocal                 // wipe local, then pull everything
	SyncModeLocalToRemote                 // wipe remote, then push everything
)

// Store is the local side of the sync
type Store interface {
	DirtyProjects(ctx context.Context) ([]model.Document, error)
	MarkSynced(ctx context.Context, id string, version int64) error
	ApplyRemote(ctx context.Context, docs []model.Document) (int, error)
	ClearProjects(ctx context.Context) error
	MarkAllDirty(ctx context.Context) error
}

// Sync exchanges project documents with the server
func (c *Client) Sync(ctx context.Context, store Store, mode SyncMode) (*SyncResult, error) {
	if !c.IsLoggedIn() {
		return nil, fmt.Errorf("not logged in")
	}

	result := &SyncResult{}

	switch mode {
	case SyncModeRemoteToLocal:
		if err := store.ClearProjects(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear local data: %w", err)
		}
		c.config.LastSync = 0
		_ = c.saveConfig()

		pulled, err := c.pullChanges(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("pull failed: %w", err)
		}
		result.Pulled = pulled

	case SyncModeLocalToRemote:
		if err := c.ClearRemote(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear remote data: %w", err)
		}
		if err := store.MarkAllDirty(ctx); err != nil {
			return nil, err
		}
		pushed, err := c.pushChanges(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("push failed: %w", err)
		}
		result.Pushed = pushed

	default:
		pushed, err := c.pushChanges(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("push failed: %w", err)
		}
		result.Pushed = pushed

		pulled, err := c.pullChanges(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("pull failed: %w", err)
		}
		result.Pulled = pulled
	}

	return result, nil
}

// ClearRemote deletes every document of the account on the server
func (c *Client) ClearRemote(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/clear", nil, nil)
}

// pushChanges sends dirty local documents to the server
func (c *Client) pushChanges(ctx context.Context, store Store) (int, error) {
	docs, err := store.DirtyProjects(ctx)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		logger.Debug("No documents to push")
		return 0, nil
	}

	cr, err := c.crypto()
	if err != nil {
		return 0, err
	}

	items := make([]SyncItem, 0, len(docs))
	for _, d := range docs {
		item := SyncItem{
			ClientID:    d.ID,
			Data:        string(d.Data),
			SyncVersion: d.SyncVersion,
			Deleted:     d.DeletedAt != nil,
			UpdatedAt:   d.UpdatedAt.UTC().Format(time.RFC3339Nano),
		}
		if cr != nil && !item.Deleted {
			sealed, err := cr.Encrypt(d.Data)
			if err != nil {
				return 0, fmt.Errorf("failed to encrypt %s: %w", d.ID, err)
			}
			item.Data = sealed
			item.Encrypted = true
		}
		if item.Deleted {
			item.Data = ""
		}
		items = append(items, item)
	}

	logger.Info("Pushing changes to server", logger.F("itemCount", len(items)))

	var res SyncPushResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync", SyncPushRequest{Items: items}, &res); err != nil {
		return 0, err
	}

	for _, u := range res.Updated {
		if err := store.MarkSynced(ctx, u.ClientID, u.SyncVersion); err != nil {
			return 0, fmt.Errorf("failed to mark %s synced: %w", u.ClientID, err)
		}
	}

	logger.Info("Push completed", logger.F("updated", len(res.Updated)))
	return len(res.Updated), nil
}

// pullChanges applies documents changed on the server since the last pull
func (c *Client) pullChanges(ctx context.Context, store Store) (int, error) {
	logger.Debug("Pulling changes from server", logger.F("since", c.config.LastSync))

	var res SyncPullResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/sync?since=%d", c.config.LastSync), nil, &res); err != nil {
		return 0, err
	}

	cr, err := c.crypto()
	if err != nil {
		return 0, err
	}

	docs := make([]model.Document, 0, len(res.Items))
	for _, item := range res.Items {
		d, err := decodeItem(item, cr)
		if err != nil {
			logger.Warn("Skipping unreadable remote document",
				logger.F("id", item.ClientID), logger.Err(err))
			continue
		}
		docs = append(docs, d)
	}

	applied, err := store.ApplyRemote(ctx, docs)
	if err != nil {
		return 0, err
	}

	if res.SyncVersion > c.config.LastSync {
		c.config.LastSync = res.SyncVersion
		_ = c.saveConfig()
	}

	logger.Info("Pull completed",
		logger.F("received", len(res.Items)),
		logger.F("applied", applied),
		logger.F("syncVersion", res.SyncVersion))
	return applied, nil
}

func decodeItem(item SyncItem, cr *Crypto) (model.Document, error) {
	d := model.Document{ID: item.ClientID, SyncVersion: item.SyncVersion}
	if t, err := time.Parse(time.RFC3339Nano, item.UpdatedAt); err == nil {
		d.UpdatedAt = t
	}
	if item.Deleted {
		t := d.UpdatedAt
		d.DeletedAt = &t
		return d, nil
	}

	data := []byte(item.Data)
	if item.Encrypted {
		if cr == nil {
			return d, fmt.Errorf("document is encrypted and no key is configured")
		}
		plain, err := cr.Decrypt(item.Data)
		if err != nil {
			return d, err
		}
		data = plain
	}
	if !json.Valid(data) {
		return d, fmt.Errorf("document is not valid JSON")
	}
	d.Data = json.RawMessage(data)
	return d, nil
}
