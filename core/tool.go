package core

// Tool is a capability the model can invoke by name. Implementations receive
// the per-call ToolContext and the model-provided arguments and return a
// JSON-like result map.
type Tool interface {
	// Name is the stable identifier the model calls the tool by.
	Name() string

	// Description tells the model what the tool does.
	Description() string

	// Declaration returns the schema advertised to the model, or nil for
	// tools that alter the request without being directly callable.
	Declaration() *FunctionDeclaration

	// IsLongRunning marks tools whose results arrive out of band. Their
	// calls are recorded in LongRunningToolIDs instead of blocking the
	// turn.
	IsLongRunning() bool

	// Run executes the tool. A returned error is converted to an
	// {"error": message} response rather than aborting the turn.
	Run(tc *ToolContext, args map[string]any) (map[string]any, error)
}

// Toolset resolves a dynamic group of tools per invocation. A failing toolset
// is skipped with a warning; it never aborts the turn.
type Toolset interface {
	Name() string
	Tools(ic *InvocationContext) ([]Tool, error)
}
