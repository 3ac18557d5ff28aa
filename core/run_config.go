package core

// DefaultMaxIterations bounds the model/tool loop of a single agent turn.
const DefaultMaxIterations = 20

// RunConfig carries per-invocation execution settings.
type RunConfig struct {
	// MaxIterations caps model calls within one agent turn. Zero means
	// DefaultMaxIterations.
	MaxIterations int
}

// EffectiveMaxIterations resolves the iteration cap, applying the default.
func (c RunConfig) EffectiveMaxIterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return DefaultMaxIterations
}
