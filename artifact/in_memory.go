package artifact

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agentloop/agentloop/core"
)

// userScopeSession is the sentinel session key under which "user:"-prefixed
// filenames are stored, making them visible across the user's sessions.
const userScopeSession = "user"

// InMemoryService is an in-process ArtifactService useful for tests, examples
// and single-process prototypes. Artifacts are versioned append-only; data is
// copied on save and load to avoid external mutation of internal buffers.
//
// Layout: app -> user -> session -> filename -> versions (index 0 is v1)
//
// It does not enforce retention limits, size quotas, or eviction. For
// production, prefer a durable backend behind the same interface.
type InMemoryService struct {
	mu        sync.RWMutex
	artifacts map[string]map[string]map[string]map[string][]core.Artifact
}

var _ core.ArtifactService = (*InMemoryService)(nil)

// NewInMemoryService returns an empty in-memory artifact service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		artifacts: make(map[string]map[string]map[string]map[string][]core.Artifact),
	}
}

// Save appends a new version and returns its number, starting at 1.
func (a *InMemoryService) Save(_ context.Context, appName, userID, sessionID, filename string, artifact core.Artifact) (int, error) {
	if err := validateFilename(filename); err != nil {
		return 0, err
	}
	sessionID = resolveScope(sessionID, filename)

	a.mu.Lock()
	defer a.mu.Unlock()

	files := a.filesLocked(appName, userID, sessionID, true)
	cp := artifact
	cp.Data = append([]byte(nil), artifact.Data...)
	files[filename] = append(files[filename], cp)
	return len(files[filename]), nil
}

// Load fetches the given version, or the latest when version is 0.
func (a *InMemoryService) Load(_ context.Context, appName, userID, sessionID, filename string, version int) (core.Artifact, error) {
	if err := validateFilename(filename); err != nil {
		return core.Artifact{}, err
	}
	sessionID = resolveScope(sessionID, filename)

	a.mu.RLock()
	defer a.mu.RUnlock()

	versions := a.filesLocked(appName, userID, sessionID, false)[filename]
	if len(versions) == 0 {
		return core.Artifact{}, core.ErrArtifactNotFound
	}
	if version == 0 {
		version = len(versions)
	}
	if version < 1 || version > len(versions) {
		return core.Artifact{}, core.ErrArtifactNotFound
	}
	stored := versions[version-1]
	cp := stored
	cp.Data = append([]byte(nil), stored.Data...)
	return cp, nil
}

// List returns the filenames visible to the session, session-scoped and
// user-scoped alike, sorted.
func (a *InMemoryService) List(_ context.Context, appName, userID, sessionID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var names []string
	for name := range a.filesLocked(appName, userID, sessionID, false) {
		names = append(names, name)
	}
	for name := range a.filesLocked(appName, userID, userScopeSession, false) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Versions returns the stored version numbers for a filename, ascending.
func (a *InMemoryService) Versions(_ context.Context, appName, userID, sessionID, filename string) ([]int, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	sessionID = resolveScope(sessionID, filename)

	a.mu.RLock()
	defer a.mu.RUnlock()

	stored := a.filesLocked(appName, userID, sessionID, false)[filename]
	if len(stored) == 0 {
		return nil, core.ErrArtifactNotFound
	}
	versions := make([]int, len(stored))
	for i := range stored {
		versions[i] = i + 1
	}
	return versions, nil
}

// Delete removes all versions of a filename; absent filenames are a no-op.
func (a *InMemoryService) Delete(_ context.Context, appName, userID, sessionID, filename string) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	sessionID = resolveScope(sessionID, filename)

	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.filesLocked(appName, userID, sessionID, false), filename)
	return nil
}

// filesLocked resolves the filename map for a key, optionally allocating the
// intermediate maps. Caller must hold the appropriate lock.
func (a *InMemoryService) filesLocked(appName, userID, sessionID string, create bool) map[string][]core.Artifact {
	users, ok := a.artifacts[appName]
	if !ok {
		if !create {
			return nil
		}
		users = map[string]map[string]map[string][]core.Artifact{}
		a.artifacts[appName] = users
	}
	sessions, ok := users[userID]
	if !ok {
		if !create {
			return nil
		}
		sessions = map[string]map[string][]core.Artifact{}
		users[userID] = sessions
	}
	files, ok := sessions[sessionID]
	if !ok {
		if !create {
			return nil
		}
		files = map[string][]core.Artifact{}
		sessions[sessionID] = files
	}
	return files
}

// resolveScope routes "user:" filenames to the user-wide sentinel session.
func resolveScope(sessionID, filename string) string {
	if strings.HasPrefix(filename, core.StateUserPrefix) {
		return userScopeSession
	}
	return sessionID
}

func validateFilename(filename string) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return core.ErrInvalidFilename
	}
	return nil
}
