package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/existflow/devpilot/internal/model"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const upsertLocal = `
INSERT INTO projects (id, name, document, updated_at, deleted_at, dirty)
VALUES (?, ?, ?, ?, NULL, 1)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    document = excluded.document,
    updated_at = excluded.updated_at,
    deleted_at = NULL,
    dirty = 1
`

// ListProjects returns all live projects ordered by name
func (db *DB) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT document FROM projects WHERE deleted_at IS NULL ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var p model.Project
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("corrupt project document: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProject loads a project by id
func (db *DB) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return getProject(ctx, db, id)
}

func getProject(ctx context.Context, q querier, id string) (*model.Project, error) {
	var doc string
	err := q.QueryRowContext(ctx,
		`SELECT document FROM projects WHERE id = ? AND deleted_at IS NULL`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var p model.Project
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("corrupt project document: %w", err)
	}
	return &p, nil
}

// FindProject resolves a user reference: exact id, unique id prefix,
// or case-insensitive name
func (db *DB) FindProject(ctx context.Context, ref string) (*model.Project, error) {
	ref = strings.TrimSpace(ref)
	if p, err := db.GetProject(ctx, ref); err == nil {
		return p, nil
	}
	projects, err := db.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var matches []model.Project
	for _, p := range projects {
		if strings.EqualFold(p.Name, ref) {
			return &p, nil
		}
		if strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("project %q: %w", ref, ErrNotFound)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("project reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// SaveProject upserts the whole project document and marks it for sync
func (db *DB) SaveProject(ctx context.Context, p *model.Project) error {
	return db.saveProject(ctx, db, p)
}

func (db *DB) saveProject(ctx context.Context, q querier, p *model.Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("project name is required")
	}
	now := db.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Tasks == nil {
		p.Tasks = []model.Task{}
	}
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	if p.Notes == nil {
		p.Notes = []string{}
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, upsertLocal, p.ID, p.Name, string(doc), formatTime(now)); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// DeleteProject tombstones a project so the deletion can be synced
func (db *DB) DeleteProject(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE projects SET deleted_at = ?, updated_at = ?, dirty = 1 WHERE id = ? AND deleted_at IS NULL`,
		formatTime(db.now()), formatTime(db.now()), id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// MutateProject loads a project, applies fn and saves it in one transaction
func (db *DB) MutateProject(ctx context.Context, id string, fn func(*model.Project) error) (*model.Project, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	p, err := getProject(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := db.saveProject(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// AddTask appends a task to a project
func (db *DB) AddTask(ctx context.Context, projectID string, t model.Task) (model.Task, error) {
	var added model.Task
	_, err := db.MutateProject(ctx, projectID, func(p *model.Project) error {
		var err error
		added, err = p.AddTask(t)
		return err
	})
	return added, err
}

// UpdateTask replaces a task inside its project
func (db *DB) UpdateTask(ctx context.Context, projectID string, t model.Task) error {
	_, err := db.MutateProject(ctx, projectID, func(p *model.Project) error {
		return p.UpdateTask(t)
	})
	return err
}

// DeleteTask removes a task from its project
func (db *DB) DeleteTask(ctx context.Context, projectID, taskID string) error {
	_, err := db.MutateProject(ctx, projectID, func(p *model.Project) error {
		return p.RemoveTask(taskID)
	})
	return err
}

// FindTask resolves a task by id or unique id prefix across all projects.
// An optional project reference narrows the search.
func (db *DB) FindTask(ctx context.Context, projectRef, taskRef string) (*model.Project, *model.Task, error) {
	var projects []model.Project
	if projectRef != "" {
		p, err := db.FindProject(ctx, projectRef)
		if err != nil {
			return nil, nil, err
		}
		projects = []model.Project{*p}
	} else {
		var err error
		if projects, err = db.ListProjects(ctx); err != nil {
			return nil, nil, err
		}
	}

	type hit struct {
		p int
		t int
	}
	var exact, prefix []hit
	for pi := range projects {
		for ti, t := range projects[pi].Tasks {
			switch {
			case t.ID == taskRef:
				exact = append(exact, hit{pi, ti})
			case strings.HasPrefix(t.ID, taskRef):
				prefix = append(prefix, hit{pi, ti})
			}
		}
	}
	hits := exact
	if len(hits) == 0 {
		hits = prefix
	}
	switch len(hits) {
	case 0:
		return nil, nil, fmt.Errorf("task %q: %w", taskRef, ErrNotFound)
	case 1:
		p := projects[hits[0].p]
		t := p.Tasks[hits[0].t]
		return &p, &t, nil
	default:
		return nil, nil, fmt.Errorf("task reference %q is ambiguous (%d matches), pass --project", taskRef, len(hits))
	}
}

// ClearProjects removes every project, including tombstones
func (db *DB) ClearProjects(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return fmt.Errorf("failed to clear projects: %w", err)
	}
	return nil
}
