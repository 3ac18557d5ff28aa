package testutil

import (
	"time"

	"github.com/agentloop/agentloop/core"
)

// SessionBuilder provides a fluent helper for constructing sessions in tests.
type SessionBuilder struct {
	appName string
	userID  string
	id      string
	state   map[string]any
	events  []core.Event
}

// NewSessionBuilder creates a builder with defaults app "test-app",
// user "user-1" and a generated session ID.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{
		appName: "test-app",
		userID:  "user-1",
		id:      core.NewID(),
	}
}

// App sets the application name (chainable).
func (b *SessionBuilder) App(name string) *SessionBuilder { b.appName = name; return b }

// User sets the user ID (chainable).
func (b *SessionBuilder) User(id string) *SessionBuilder { b.userID = id; return b }

// ID sets the session ID (chainable).
func (b *SessionBuilder) ID(id string) *SessionBuilder { b.id = id; return b }

// State sets a state key on the session (chainable).
func (b *SessionBuilder) State(key string, value any) *SessionBuilder {
	if b.state == nil {
		b.state = map[string]any{}
	}
	b.state[key] = value
	return b
}

// Event appends a prebuilt event (chainable).
func (b *SessionBuilder) Event(ev core.Event) *SessionBuilder {
	b.events = append(b.events, ev)
	return b
}

// Events appends multiple prebuilt events (chainable).
func (b *SessionBuilder) Events(evs ...core.Event) *SessionBuilder {
	b.events = append(b.events, evs...)
	return b
}

// Build assembles the session.
func (b *SessionBuilder) Build() *core.Session {
	state := map[string]any{}
	for k, v := range b.state {
		state[k] = v
	}
	return &core.Session{
		ID:             b.id,
		AppName:        b.appName,
		UserID:         b.userID,
		State:          state,
		Events:         append([]core.Event(nil), b.events...),
		LastUpdateTime: time.Now(),
	}
}
