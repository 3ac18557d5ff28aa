package session

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/agentloop/agentloop/core"
)

// InMemoryService is a volatile SessionService keeping sessions in process
// local maps. It is safe for concurrent access and best suited for tests or
// ephemeral demo servers. Every returned session is an independent snapshot;
// mutating it never touches the store.
//
// Shared-scope state lives outside the per-session records: app-scoped keys in
// one store per app, user-scoped keys in one store per (app, user). Merged
// views are assembled at read time.
type InMemoryService struct {
	mu sync.RWMutex

	// appState[app] -> unprefixed app-scoped keys
	appState map[string]map[string]any
	// userState[app][user] -> unprefixed user-scoped keys
	userState map[string]map[string]map[string]any
	// sessions[app][user][id]
	sessions map[string]map[string]map[string]*record
}

type record struct {
	state         map[string]any
	events        []core.Event
	lastUpdate    time.Time
	lastEventTime time.Time
}

var _ core.SessionService = (*InMemoryService)(nil)

// NewInMemoryService constructs an empty in-memory session service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		appState:  map[string]map[string]any{},
		userState: map[string]map[string]map[string]any{},
		sessions:  map[string]map[string]map[string]*record{},
	}
}

// Create registers a new session, fanning prefixed initial state out to the
// shared stores. An empty sessionID gets a generated id.
func (s *InMemoryService) Create(_ context.Context, appName, userID, sessionID string, initialState map[string]any) (*core.Session, error) {
	if sessionID == "" {
		sessionID = core.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recordLocked(appName, userID, sessionID); ok {
		return nil, core.ErrSessionExists
	}

	app, user, local := core.SplitDelta(initialState)
	s.applySharedLocked(appName, userID, app, user)

	rec := &record{
		state:      local,
		lastUpdate: time.Now().UTC(),
	}
	s.storeLocked(appName, userID, sessionID, rec)

	return s.snapshotLocked(appName, userID, sessionID, rec, core.GetOptions{}), nil
}

// Get fetches a session snapshot with its merged state view.
func (s *InMemoryService) Get(_ context.Context, appName, userID, sessionID string, optFns ...func(*core.GetOptions)) (*core.Session, error) {
	var opts core.GetOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recordLocked(appName, userID, sessionID)
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return s.snapshotLocked(appName, userID, sessionID, rec, opts), nil
}

// List returns snapshots of a user's sessions without event histories.
func (s *InMemoryService) List(_ context.Context, appName, userID string) ([]*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Session
	for id, rec := range s.sessions[appName][userID] {
		snap := s.snapshotLocked(appName, userID, id, rec, core.GetOptions{})
		snap.Events = nil
		out = append(out, snap)
	}
	return out, nil
}

// Delete removes a session; deleting an absent session is a no-op.
func (s *InMemoryService) Delete(_ context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if users, ok := s.sessions[appName]; ok {
		delete(users[userID], sessionID)
	}
	return nil
}

// AppendEvent commits an event: the state delta fans out by prefix, temp keys
// are trimmed from the stored copy, and the timestamp is restamped to commit
// time, clamped so it never precedes the previous event's. Partial events are
// returned unchanged without any mutation.
func (s *InMemoryService) AppendEvent(_ context.Context, sess *core.Session, event core.Event) (core.Event, error) {
	if sess == nil {
		return core.Event{}, core.ErrSessionNotFound
	}

	if event.Partial {
		return event, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recordLocked(sess.AppName, sess.UserID, sess.ID)
	if !ok {
		return core.Event{}, core.ErrSessionNotFound
	}

	stored := event.Clone()
	stored.Actions.StateDelta = core.TrimTempDelta(stored.Actions.StateDelta)

	now := time.Now().UTC()
	if now.Before(rec.lastEventTime) {
		now = rec.lastEventTime
	}
	stored.Timestamp = now
	rec.lastEventTime = now
	rec.lastUpdate = now

	app, user, local := core.SplitDelta(stored.Actions.StateDelta)
	s.applySharedLocked(sess.AppName, sess.UserID, app, user)
	if rec.state == nil {
		rec.state = map[string]any{}
	}
	maps.Copy(rec.state, local)

	rec.events = append(rec.events, stored.Clone())

	core.ApplyEventLocal(sess, stored)
	return stored, nil
}

func (s *InMemoryService) recordLocked(appName, userID, sessionID string) (*record, bool) {
	rec, ok := s.sessions[appName][userID][sessionID]
	return rec, ok
}

func (s *InMemoryService) storeLocked(appName, userID, sessionID string, rec *record) {
	users, ok := s.sessions[appName]
	if !ok {
		users = map[string]map[string]*record{}
		s.sessions[appName] = users
	}
	byID, ok := users[userID]
	if !ok {
		byID = map[string]*record{}
		users[userID] = byID
	}
	byID[sessionID] = rec
}

func (s *InMemoryService) applySharedLocked(appName, userID string, app, user map[string]any) {
	if len(app) > 0 {
		store, ok := s.appState[appName]
		if !ok {
			store = map[string]any{}
			s.appState[appName] = store
		}
		maps.Copy(store, app)
	}
	if len(user) > 0 {
		byUser, ok := s.userState[appName]
		if !ok {
			byUser = map[string]map[string]any{}
			s.userState[appName] = byUser
		}
		store, ok := byUser[userID]
		if !ok {
			store = map[string]any{}
			byUser[userID] = store
		}
		maps.Copy(store, user)
	}
}

// snapshotLocked assembles an independent session snapshot with the merged
// state view. Caller must hold at least the read lock.
func (s *InMemoryService) snapshotLocked(appName, userID, sessionID string, rec *record, opts core.GetOptions) *core.Session {
	events := core.FilterEvents(rec.events, opts)
	cloned := make([]core.Event, len(events))
	for i, ev := range events {
		cloned[i] = ev.Clone()
	}
	return &core.Session{
		ID:             sessionID,
		AppName:        appName,
		UserID:         userID,
		State:          core.MergeState(s.appState[appName], s.userState[appName][userID], rec.state),
		Events:         cloned,
		LastUpdateTime: rec.lastUpdate,
	}
}
