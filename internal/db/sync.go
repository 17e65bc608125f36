package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/existflow/devpilot/internal/model"
)

// DirtyProjects returns documents changed locally since the last sync,
// including tombstones
func (db *DB) DirtyProjects(ctx context.Context) ([]model.Document, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, document, updated_at, deleted_at, sync_version FROM projects WHERE dirty = 1 ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dirty projects: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var (
			d         model.Document
			data      string
			updatedAt string
			deletedAt sql.NullString
		)
		if err := rows.Scan(&d.ID, &data, &updatedAt, &deletedAt, &d.SyncVersion); err != nil {
			return nil, err
		}
		d.Data = json.RawMessage(data)
		d.UpdatedAt = parseTime(updatedAt)
		if deletedAt.Valid {
			t := parseTime(deletedAt.String)
			d.DeletedAt = &t
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// MarkSynced records the server version of a pushed document.
// Pushed tombstones are purged.
func (db *DB) MarkSynced(ctx context.Context, id string, version int64) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = ? AND deleted_at IS NOT NULL`, id); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`UPDATE projects SET dirty = 0, sync_version = ? WHERE id = ?`, version, id)
	return err
}

// ApplyRemote writes documents pulled from the server.
// Documents with unpushed local edits are left alone.
func (db *DB) ApplyRemote(ctx context.Context, docs []model.Document) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	applied := 0
	for _, d := range docs {
		var res sql.Result
		if d.DeletedAt != nil {
			res, err = tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND dirty = 0`, d.ID)
		} else {
			var p model.Project
			if err := json.Unmarshal(d.Data, &p); err != nil {
				return applied, fmt.Errorf("remote document %s: %w", d.ID, err)
			}
			updated := d.UpdatedAt
			if updated.IsZero() {
				updated = time.Now()
			}
			res, err = tx.ExecContext(ctx, `
INSERT INTO projects (id, name, document, updated_at, deleted_at, sync_version, dirty)
VALUES (?, ?, ?, ?, NULL, ?, 0)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    document = excluded.document,
    updated_at = excluded.updated_at,
    deleted_at = NULL,
    sync_version = excluded.sync_version,
    dirty = 0
WHERE projects.dirty = 0`,
				d.ID, p.Name, string(d.Data), formatTime(updated), d.SyncVersion)
		}
		if err != nil {
			return applied, fmt.Errorf("failed to apply remote document %s: %w", d.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			applied++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return applied, nil
}

// MarkAllDirty flags every live project for the next push
func (db *DB) MarkAllDirty(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `UPDATE projects SET dirty = 1, sync_version = 0`)
	return err
}
