package model

import (
	"encoding/json"
	"time"
)

// User represents an account on the sync server
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Document is a project as stored on the sync server
type Document struct {
	ID          string          `json:"id"`
	Data        json.RawMessage `json:"data"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
	SyncVersion int64           `json:"sync_version"`
}
