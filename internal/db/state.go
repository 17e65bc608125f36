package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/existflow/devpilot/internal/localstate"
)

// stateStore keeps local state values in the state table
type stateStore struct {
	db *DB
}

// State returns the local state store backed by this database
func (db *DB) State() localstate.Store {
	return stateStore{db: db}
}

func (s stateStore) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s stateStore) Set(key, value string) error {
	_, err := s.db.Exec(`
INSERT INTO state (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s stateStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM state WHERE key = ?`, key)
	return err
}

// Update runs fn inside an immediate transaction so writers in other
// processes sharing the database file wait until the new value is stored.
// fn must not use the database.
func (s stateStore) Update(key string, fn func(value string, ok bool) (string, error)) (err error) {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("failed to begin state update: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(ctx, `ROLLBACK`)
		}
	}()

	var cur string
	ok := true
	err = conn.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		ok, err = false, nil
	}
	if err != nil {
		return err
	}

	next, err := fn(cur, ok)
	if err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx, `
INSERT INTO state (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, next); err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("failed to commit state update: %w", err)
	}
	return nil
}
