package core

import (
	"context"
	"maps"
	"slices"
	"time"
)

// Session is a snapshot of one conversation thread: merged state view plus the
// ordered committed event history. Snapshots returned by a SessionService are
// owned by the caller; mutating them does not affect the store.
type Session struct {
	ID             string         `json:"id"`
	AppName        string         `json:"app_name"`
	UserID         string         `json:"user_id"`
	State          map[string]any `json:"state"`
	Events         []Event        `json:"events"`
	LastUpdateTime time.Time      `json:"last_update_time"`
}

// Clone returns a deep copy of the session snapshot.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.State = maps.Clone(s.State)
	c.Events = make([]Event, len(s.Events))
	for i, ev := range s.Events {
		c.Events[i] = ev.Clone()
	}
	return &c
}

// GetOptions filters the event history of a fetched session.
type GetOptions struct {
	// NumRecentEvents, when positive, limits the history to the N most
	// recent events.
	NumRecentEvents int
	// AfterTime, when set, drops events stamped at or before the instant.
	AfterTime time.Time
}

// WithNumRecentEvents limits the fetched history to the n most recent events.
func WithNumRecentEvents(n int) func(*GetOptions) {
	return func(o *GetOptions) { o.NumRecentEvents = n }
}

// WithAfterTime keeps only events stamped strictly after t.
func WithAfterTime(t time.Time) func(*GetOptions) {
	return func(o *GetOptions) { o.AfterTime = t }
}

// SessionService manages conversation threads keyed by (app, user, id). State
// written through AppendEvent fans out by key prefix: app-scoped and
// user-scoped keys land in shared stores, temp keys are discarded and
// unprefixed keys stay session-local.
type SessionService interface {
	// Create registers a new session. The id may be empty, in which case
	// one is generated. Prefixed keys in initialState fan out to their
	// scope stores. Returns ErrSessionExists for a taken key.
	Create(ctx context.Context, appName, userID, sessionID string, initialState map[string]any) (*Session, error)

	// Get fetches a session snapshot with its merged state view, or
	// ErrSessionNotFound. Options filter the returned event history only.
	Get(ctx context.Context, appName, userID, sessionID string, optFns ...func(*GetOptions)) (*Session, error)

	// List returns snapshots of a user's sessions without their event
	// histories.
	List(ctx context.Context, appName, userID string) ([]*Session, error)

	// Delete removes a session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, appName, userID, sessionID string) error

	// AppendEvent commits an event to the session: the event's state delta
	// fans out by prefix, temp keys are trimmed from the stored copy and
	// the timestamp is restamped to commit time (monotonically
	// non-decreasing within the session). Partial events are returned
	// unchanged without any mutation. The returned event is the stored
	// form; sess is updated in place so the caller's snapshot tracks the
	// commit.
	AppendEvent(ctx context.Context, sess *Session, event Event) (Event, error)
}

// ApplyEventLocal folds an event into a session snapshot without touching a
// store. Shared-scope keys keep their prefixes in the merged view; temp keys
// are dropped.
func ApplyEventLocal(sess *Session, event Event) {
	if sess == nil {
		return
	}
	if len(event.Actions.StateDelta) > 0 {
		if sess.State == nil {
			sess.State = map[string]any{}
		}
		for k, v := range event.Actions.StateDelta {
			if ScopeOf(k) == ScopeTemp {
				continue
			}
			sess.State[k] = v
		}
	}
	sess.Events = append(sess.Events, event)
	sess.LastUpdateTime = event.Timestamp
}

// FilterEvents applies GetOptions to an event history, newest-biased.
func FilterEvents(events []Event, opts GetOptions) []Event {
	out := slices.Clone(events)
	if !opts.AfterTime.IsZero() {
		filtered := out[:0]
		for _, ev := range out {
			if ev.Timestamp.After(opts.AfterTime) {
				filtered = append(filtered, ev)
			}
		}
		out = filtered
	}
	if opts.NumRecentEvents > 0 && len(out) > opts.NumRecentEvents {
		out = out[len(out)-opts.NumRecentEvents:]
	}
	return out
}
