package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/agentloop/agentloop/core"
)

// InMemoryService is a naive process-local MemoryService. Ingested session
// events are kept per (app, user); Search is a linear scan matching on
// lowercased whole words. Suitable for tests and demos only; swap in a vector
// or semantic index for production retrieval.
type InMemoryService struct {
	mu      sync.RWMutex
	entries map[string]map[string][]core.MemoryEntry // app -> user -> entries
}

var _ core.MemoryService = (*InMemoryService)(nil)

// NewInMemoryService creates an empty in-memory memory service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{entries: make(map[string]map[string][]core.MemoryEntry)}
}

// AddSession ingests the session's committed events that carry content.
func (m *InMemoryService) AddSession(_ context.Context, sess *core.Session) error {
	if sess == nil {
		return core.ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	users, ok := m.entries[sess.AppName]
	if !ok {
		users = map[string][]core.MemoryEntry{}
		m.entries[sess.AppName] = users
	}
	for _, ev := range sess.Events {
		if ev.Content == nil || ev.Content.Text() == "" {
			continue
		}
		users[sess.UserID] = append(users[sess.UserID], core.MemoryEntry{
			Content:   ev.Content.Clone(),
			Author:    ev.Author,
			Timestamp: ev.Timestamp,
		})
	}
	return nil
}

// Search returns entries sharing at least one word with the query,
// case-insensitive, in ingestion order.
func (m *InMemoryService) Search(_ context.Context, appName, userID, query string) ([]core.MemoryEntry, error) {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []core.MemoryEntry
	for _, entry := range m.entries[appName][userID] {
		text := strings.ToLower(entry.Content.Text())
		for _, w := range words {
			if strings.Contains(text, w) {
				results = append(results, entry)
				break
			}
		}
	}
	return results, nil
}
