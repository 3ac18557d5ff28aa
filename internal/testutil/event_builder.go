package testutil

import (
	"time"

	"github.com/agentloop/agentloop/core"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().Author("agent").Invocation("inv-1").ModelText("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	author       string
	invocationID string
	id           string
	branch       string
	role         string
	parts        []core.Part
	partial      bool
	actions      core.EventActions
	longRunning  []string
	timestamp    time.Time
}

// NewEventBuilder creates a builder with default author "agent".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "agent"} }

// Author sets the author name for the event (chainable).
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Invocation sets the invocation ID associated with the event (chainable).
func (b *EventBuilder) Invocation(id string) *EventBuilder { b.invocationID = id; return b }

// ID overrides the auto-generated event ID (chainable).
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Branch sets the branch path for forked execution paths (chainable).
func (b *EventBuilder) Branch(br string) *EventBuilder { b.branch = br; return b }

// Partial marks the event as a streaming chunk (chainable).
func (b *EventBuilder) Partial() *EventBuilder { b.partial = true; return b }

// Timestamp overrides the event timestamp (chainable).
func (b *EventBuilder) Timestamp(t time.Time) *EventBuilder { b.timestamp = t; return b }

// UserText appends a text part and sets role to user (chainable).
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.role = core.RoleUser
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// ModelText appends a text part and sets role to model (chainable).
func (b *EventBuilder) ModelText(t string) *EventBuilder {
	b.role = core.RoleModel
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// FunctionCall adds a function call part (chainable).
func (b *EventBuilder) FunctionCall(id, name string, args map[string]any) *EventBuilder {
	b.role = core.RoleModel
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
		ID: id, Name: name, Args: args,
	}})
	return b
}

// FunctionResponse adds a function response part (chainable).
func (b *EventBuilder) FunctionResponse(id, name string, response map[string]any) *EventBuilder {
	b.role = core.RoleUser
	b.parts = append(b.parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
		ID: id, Name: name, Response: response,
	}})
	return b
}

// StateDelta adds a state delta entry to the event actions (chainable).
func (b *EventBuilder) StateDelta(key string, value any) *EventBuilder {
	if b.actions.StateDelta == nil {
		b.actions.StateDelta = map[string]any{}
	}
	b.actions.StateDelta[key] = value
	return b
}

// Transfer sets the transfer target on the event actions (chainable).
func (b *EventBuilder) Transfer(agentName string) *EventBuilder {
	b.actions.TransferToAgent = agentName
	return b
}

// Escalate sets the escalate flag on the event actions (chainable).
func (b *EventBuilder) Escalate() *EventBuilder {
	b.actions.Escalate = true
	return b
}

// LongRunning records pending long-running tool ids (chainable).
func (b *EventBuilder) LongRunning(ids ...string) *EventBuilder {
	b.longRunning = append(b.longRunning, ids...)
	return b
}

// Build assembles the event.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.invocationID, b.author)
	if b.id != "" {
		ev.ID = b.id
	}
	ev.Branch = b.branch
	if len(b.parts) > 0 {
		ev.Content = &core.Content{Role: b.role, Parts: b.parts}
	}
	ev.Partial = b.partial
	ev.Actions = b.actions
	ev.LongRunningToolIDs = b.longRunning
	if !b.timestamp.IsZero() {
		ev.Timestamp = b.timestamp
	}
	return ev
}
