package core

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// EventActions encodes side effects or orchestration signals attached to an
// Event. All fields default to empty/false; the session service interprets
// StateDelta at append time and the runner interprets the flow-control flags.
type EventActions struct {
	StateDelta                 map[string]any `json:"state_delta,omitempty"`
	ArtifactDelta              map[string]int `json:"artifact_delta,omitempty"`
	TransferToAgent            string         `json:"transfer_to_agent,omitempty"`
	Escalate                   bool           `json:"escalate,omitempty"`
	SkipSummarization          bool           `json:"skip_summarization,omitempty"`
	RequestedToolConfirmations []string       `json:"requested_tool_confirmations,omitempty"`
}

// Clone returns a deep copy of the actions bundle.
func (a EventActions) Clone() EventActions {
	c := a
	if a.StateDelta != nil {
		c.StateDelta = maps.Clone(a.StateDelta)
	}
	if a.ArtifactDelta != nil {
		c.ArtifactDelta = maps.Clone(a.ArtifactDelta)
	}
	c.RequestedToolConfirmations = slices.Clone(a.RequestedToolConfirmations)
	return c
}

// Event is the primary unit of communication between agents, the runner and
// external clients. After emission it should be treated as immutable; only the
// session service may stamp Timestamp at append time. It captures:
//   - Correlation (ID, InvocationID, Author, Branch)
//   - Conversational content (optional role-based Parts)
//   - Orchestration directives (Actions)
//   - Long-running tool ids awaiting out-of-band resolution
//   - Error / interruption metadata
type Event struct {
	ID                 string         `json:"id"`
	InvocationID       string         `json:"invocation_id,omitempty"`
	Author             string         `json:"author,omitempty"`
	Branch             string         `json:"branch,omitempty"`
	Content            *Content       `json:"content,omitempty"`
	Actions            EventActions   `json:"actions"`
	LongRunningToolIDs []string       `json:"long_running_tool_ids,omitempty"`
	Partial            bool           `json:"partial,omitempty"`
	TurnComplete       bool           `json:"turn_complete,omitempty"`
	Interrupted        bool           `json:"interrupted,omitempty"`
	ErrorCode          string         `json:"error_code,omitempty"`
	ErrorMessage       string         `json:"error_message,omitempty"`
	FinishReason       string         `json:"finish_reason,omitempty"`
	UsageMetadata      *UsageMetadata `json:"usage_metadata,omitempty"`
	Timestamp          time.Time      `json:"timestamp"`
}

// NewID generates a new UUIDv4 identifier used for events and invocations.
func NewID() string { return uuid.NewString() }

// NewEvent creates a bare event authored by author bound to an invocation.
func NewEvent(invocationID, author string) Event {
	return Event{
		ID:           NewID(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    time.Now().UTC(),
	}
}

// NewUserEvent creates a user-authored event carrying the given content.
func NewUserEvent(invocationID string, content *Content) Event {
	e := NewEvent(invocationID, RoleUser)
	e.Content = content
	return e
}

// NewTextEvent creates an agent-authored single text part event.
func NewTextEvent(invocationID, author, text string) Event {
	e := NewEvent(invocationID, author)
	e.Content = NewModelContent(text)
	return e
}

// NewErrorEvent creates an agent-authored error event with the given code.
func NewErrorEvent(invocationID, author, code, message string) Event {
	e := NewEvent(invocationID, author)
	e.ErrorCode = code
	e.ErrorMessage = message
	return e
}

// GetFunctionCalls returns any FunctionCall parts contained within the event
// content preserving their original order.
func (e Event) GetFunctionCalls() []FunctionCall { return e.Content.FunctionCalls() }

// GetFunctionResponses returns any FunctionResponse parts contained within the
// event content preserving their original order.
func (e Event) GetFunctionResponses() []FunctionResponse { return e.Content.FunctionResponses() }

// IsFinalResponse reports whether this event terminates its agent's loop:
// summarization was skipped, a long-running tool is pending, or the content
// settles with no function calls or responses and the event is not partial.
func (e Event) IsFinalResponse() bool {
	if e.Actions.SkipSummarization || len(e.LongRunningToolIDs) > 0 {
		return true
	}
	return !e.Partial &&
		len(e.GetFunctionCalls()) == 0 &&
		len(e.GetFunctionResponses()) == 0
}

// Clone returns a deep copy of the event safe for independent mutation.
func (e Event) Clone() Event {
	c := e
	c.Content = e.Content.Clone()
	c.Actions = e.Actions.Clone()
	c.LongRunningToolIDs = slices.Clone(e.LongRunningToolIDs)
	if e.UsageMetadata != nil {
		um := *e.UsageMetadata
		c.UsageMetadata = &um
	}
	return c
}
