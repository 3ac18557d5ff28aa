package core

import "errors"

// Sentinel errors surfaced by the service interfaces and the runner. In-flow
// failures (model errors, iteration limits, missing transfer targets) are not
// returned as values; they materialize as error Events in the stream.
var (
	// ErrSessionNotFound is returned when a (app, user, id) session key does not resolve.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned by Create when the session key is taken.
	ErrSessionExists = errors.New("session already exists")
	// ErrArtifactNotFound is returned when a filename or version does not resolve.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrInvalidFilename is returned for artifact filenames containing path separators.
	ErrInvalidFilename = errors.New("invalid artifact filename")
	// ErrDuplicatePlugins is returned at chain construction for repeated plugin names.
	ErrDuplicatePlugins = errors.New("duplicate plugin names")
	// ErrDuplicateAgentName is returned when an agent tree holds two agents with the same name.
	ErrDuplicateAgentName = errors.New("duplicate agent name")
	// ErrAgentNotFound is returned when a named agent cannot be resolved in the tree.
	ErrAgentNotFound = errors.New("agent not found")
)

// Error codes carried by error Events in the stream.
const (
	ErrorCodeIterationLimit        = "iteration_limit"
	ErrorCodeModelError            = "model_error"
	ErrorCodeTransferTargetMissing = "transfer_target_missing"
)
