package core

import (
	"context"
	"time"
)

// MemoryEntry is one recalled piece of conversation history.
type MemoryEntry struct {
	Content   *Content  `json:"content"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MemoryService provides long-term recall across sessions.
type MemoryService interface {
	// AddSession ingests a session's committed events into the store.
	AddSession(ctx context.Context, sess *Session) error

	// Search returns entries relevant to the query for the given app/user.
	Search(ctx context.Context, appName, userID, query string) ([]MemoryEntry, error)
}
