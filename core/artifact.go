package core

import "context"

// Artifact is a versioned named binary attached to a session (or, with a
// "user:" filename prefix, to the user across sessions).
type Artifact struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type,omitempty"`
}

// ArtifactService stores versioned binary artifacts keyed by
// (app, user, session, filename). Saves append a new version; version numbers
// start at 1 and only grow.
type ArtifactService interface {
	// Save stores a new version of the artifact and returns its version
	// number. Filenames containing path separators are rejected with
	// ErrInvalidFilename.
	Save(ctx context.Context, appName, userID, sessionID, filename string, artifact Artifact) (int, error)

	// Load fetches the given version, or the latest when version is 0.
	// Returns ErrArtifactNotFound for unknown filenames or versions.
	Load(ctx context.Context, appName, userID, sessionID, filename string, version int) (Artifact, error)

	// List returns the filenames visible to the session, including the
	// user-scoped ones.
	List(ctx context.Context, appName, userID, sessionID string) ([]string, error)

	// Versions returns the stored version numbers for a filename in
	// ascending order.
	Versions(ctx context.Context, appName, userID, sessionID, filename string) ([]int, error)

	// Delete removes all versions of a filename. Absent filenames are a
	// no-op.
	Delete(ctx context.Context, appName, userID, sessionID, filename string) error
}
