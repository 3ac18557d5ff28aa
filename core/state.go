package core

import "strings"

// State key prefixes routing writes to their scope store. Keys without a
// prefix are session-local.
const (
	StateAppPrefix  = "app:"
	StateUserPrefix = "user:"
	StateTempPrefix = "temp:"
)

// StateScope identifies where a state key lives and who observes it.
type StateScope int

const (
	// ScopeSession is the default scope: visible to one session only.
	ScopeSession StateScope = iota
	// ScopeApp is shared across all users of the app.
	ScopeApp
	// ScopeUser is shared across all sessions of one user within the app.
	ScopeUser
	// ScopeTemp lives for one invocation and is never persisted.
	ScopeTemp
)

// ScopeOf returns the scope a state key routes to, by prefix match.
func ScopeOf(key string) StateScope {
	switch {
	case strings.HasPrefix(key, StateAppPrefix):
		return ScopeApp
	case strings.HasPrefix(key, StateUserPrefix):
		return ScopeUser
	case strings.HasPrefix(key, StateTempPrefix):
		return ScopeTemp
	default:
		return ScopeSession
	}
}

// SplitDelta slices a state delta into per-scope deltas. App and user keys
// have their prefixes stripped; temp keys are discarded.
func SplitDelta(delta map[string]any) (app, user, session map[string]any) {
	app = map[string]any{}
	user = map[string]any{}
	session = map[string]any{}
	for k, v := range delta {
		switch ScopeOf(k) {
		case ScopeApp:
			app[strings.TrimPrefix(k, StateAppPrefix)] = v
		case ScopeUser:
			user[strings.TrimPrefix(k, StateUserPrefix)] = v
		case ScopeTemp:
			// dropped: temp keys never persist
		default:
			session[k] = v
		}
	}
	return app, user, session
}

// MergeState builds the merged read view of a session's state: app and user
// keys get their prefixes reattached, session keys pass through. Temp keys
// never appear in a merged view.
func MergeState(app, user, session map[string]any) map[string]any {
	merged := make(map[string]any, len(app)+len(user)+len(session))
	for k, v := range app {
		merged[StateAppPrefix+k] = v
	}
	for k, v := range user {
		merged[StateUserPrefix+k] = v
	}
	for k, v := range session {
		merged[k] = v
	}
	return merged
}

// TrimTempDelta returns a copy of delta with all temp-scoped keys removed.
// A nil or temp-free input is returned as is.
func TrimTempDelta(delta map[string]any) map[string]any {
	hasTemp := false
	for k := range delta {
		if ScopeOf(k) == ScopeTemp {
			hasTemp = true
			break
		}
	}
	if !hasTemp {
		return delta
	}
	trimmed := make(map[string]any, len(delta))
	for k, v := range delta {
		if ScopeOf(k) != ScopeTemp {
			trimmed[k] = v
		}
	}
	return trimmed
}
