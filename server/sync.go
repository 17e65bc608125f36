package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/existflow/devpilot/internal/logger"
	"github.com/labstack/echo/v4"
)

// SyncItem is one project document. Data is opaque to the server; it is
// either document JSON or ciphertext when Encrypted is set.
type SyncItem struct {
	ClientID    string `json:"client_id"`
	Data        string `json:"data"`
	Encrypted   bool   `json:"encrypted"`
	SyncVersion int64  `json:"sync_version"`
	Deleted     bool   `json:"deleted"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// SyncPullResponse is the response for pull requests
type SyncPullResponse struct {
	Items       []SyncItem `json:"items"`
	SyncVersion int64      `json:"sync_version"`
}

// SyncPushRequest is the request for push
type SyncPushRequest struct {
	Items []SyncItem `json:"items"`
}

// SyncPushResponse is the response for push requests
type SyncPushResponse struct {
	Updated []SyncItem `json:"updated"`
}

// handleSyncPull returns documents changed since the given version
func (s *Server) handleSyncPull(c echo.Context) error {
	uid := userID(c)
	ctx := c.Request().Context()

	since := int64(0)
	if v := c.QueryParam("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return errorJSON(c, http.StatusBadRequest, "invalid since")
		}
		since = n
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, data, encrypted, sync_version, deleted, updated_at
		FROM documents
		WHERE user_id = $1 AND sync_version > $2
		ORDER BY sync_version ASC`,
		uid, since,
	)
	if err != nil {
		logger.Error("Failed to query documents", logger.Err(err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}
	defer rows.Close()

	items := []SyncItem{}
	for rows.Next() {
		var (
			item      SyncItem
			updatedAt time.Time
		)
		if err := rows.Scan(&item.ClientID, &item.Data, &item.Encrypted,
			&item.SyncVersion, &item.Deleted, &updatedAt); err != nil {
			logger.Error("Failed to scan document", logger.Err(err))
			return errorJSON(c, http.StatusInternalServerError, "internal error")
		}
		item.UpdatedAt = updatedAt.UTC().Format(time.RFC3339Nano)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}

	var maxVersion int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sync_version), 0) FROM documents WHERE user_id = $1`,
		uid,
	).Scan(&maxVersion); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}

	logger.Info("Sync pull",
		logger.F("user", uid),
		logger.F("items", len(items)),
		logger.F("since", since))

	return c.JSON(http.StatusOK, SyncPullResponse{
		Items:       items,
		SyncVersion: maxVersion,
	})
}

// handleSyncPush upserts documents. Each accepted document gets the next
// version of the account, so versions are unique and increasing per user.
func (s *Server) handleSyncPush(c echo.Context) error {
	uid := userID(c)

	var req SyncPushRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	for _, item := range req.Items {
		if item.ClientID == "" {
			return errorJSON(c, http.StatusBadRequest, "client_id required")
		}
	}

	updated, err := s.pushDocuments(c.Request().Context(), uid, req.Items)
	if err != nil {
		logger.Error("Sync push failed", logger.F("user", uid), logger.Err(err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}

	logger.Info("Sync push", logger.F("user", uid), logger.F("updated", len(updated)))
	return c.JSON(http.StatusOK, SyncPushResponse{Updated: updated})
}

func (s *Server) pushDocuments(ctx context.Context, uid string, items []SyncItem) ([]SyncItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// serialise version allocation per account
	if _, err := tx.ExecContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, uid); err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}

	updated := make([]SyncItem, 0, len(items))
	for _, item := range items {
		if item.Deleted {
			item.Data = ""
			item.Encrypted = false
		}
		var (
			version   int64
			updatedAt time.Time
		)
		err := tx.QueryRowContext(ctx, `
			INSERT INTO documents (user_id, client_id, data, encrypted, deleted, sync_version, updated_at)
			VALUES ($1, $2, $3, $4, $5,
				(SELECT COALESCE(MAX(sync_version), 0) + 1 FROM documents WHERE user_id = $1), NOW())
			ON CONFLICT (user_id, client_id) DO UPDATE SET
				data = $3,
				encrypted = $4,
				deleted = $5,
				sync_version = (SELECT COALESCE(MAX(sync_version), 0) + 1 FROM documents WHERE user_id = $1),
				updated_at = NOW()
			RETURNING sync_version, updated_at`,
			uid, item.ClientID, item.Data, item.Encrypted, item.Deleted,
		).Scan(&version, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", item.ClientID, err)
		}
		item.SyncVersion = version
		item.UpdatedAt = updatedAt.UTC().Format(time.RFC3339Nano)
		item.Data = ""
		updated = append(updated, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

// handleClear tombstones every document of the account so other devices
// see the deletions on their next pull
func (s *Server) handleClear(c echo.Context) error {
	uid := userID(c)

	res, err := s.db.ExecContext(c.Request().Context(), `
		UPDATE documents SET
			deleted = TRUE,
			data = '',
			encrypted = FALSE,
			sync_version = sync_version + (SELECT COALESCE(MAX(sync_version), 0) FROM documents WHERE user_id = $1),
			updated_at = NOW()
		WHERE user_id = $1 AND deleted = FALSE`,
		uid,
	)
	if err != nil {
		logger.Error("Failed to clear documents", logger.F("user", uid), logger.Err(err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}

	n, _ := res.RowsAffected()
	logger.Info("Cleared documents", logger.F("user", uid), logger.F("count", n))
	return c.JSON(http.StatusOK, map[string]int64{"cleared": n})
}
