package model

import "time"

// ChatRole identifies the author of a chat message
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of a conversation
type ChatMessage struct {
	ID             string    `json:"id"`
	Role           ChatRole  `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	ProjectContext string    `json:"project_context,omitempty"`
}

// ChatSession is a titled conversation, optionally tied to a project
type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	ProjectID string        `json:"project_id,omitempty"`
}
