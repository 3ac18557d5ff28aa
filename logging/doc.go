// Package logging defines the minimal structured logging contract consumed by
// the runtime and adapters for log/slog.
package logging
