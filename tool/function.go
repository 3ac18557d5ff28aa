package tool

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// tool.
//
// Responsibilities:
//   - Holds a JSON-Schema-like parameter specification
//   - Validates model supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *core.ToolContext giving access to
//     session state, function call IDs, artifact helpers, etc.
//   - Normalizes error handling so callers receive *ToolError with consistent
//     codes: VALIDATION_ERROR for schema/argument mismatch, EXECUTION_ERROR
//     when the underlying function returned a plain error (custom codes are
//     preserved if the function returns *ToolError directly)
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	longRunning bool
	fn          func(tc *core.ToolContext, args map[string]any) (map[string]any, error)
}

var _ core.Tool = (*FunctionTool)(nil)

// FunctionToolOptions configure a FunctionTool beyond its schema and function.
type FunctionToolOptions struct {
	// LongRunning marks the tool as resolving out of band: its calls are
	// recorded in LongRunningToolIDs instead of blocking the turn.
	LongRunning bool
}

// WithLongRunning marks the tool as long-running.
func WithLongRunning() func(o *FunctionToolOptions) {
	return func(o *FunctionToolOptions) { o.LongRunning = true }
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
//	    return map[string]any{"sum": args["a"].(float64) + args["b"].(float64)}, nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(tc *core.ToolContext, args map[string]any) (map[string]any, error),
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	opts := FunctionToolOptions{}
	for _, optFn := range optFns {
		optFn(&opts)
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		longRunning: opts.LongRunning,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct via
// JSON Schema reflection. Use json tags for field names and jsonschema tags
// for descriptions and constraints.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" jsonschema:"description=First addend"`
//	  B float64 `json:"b" jsonschema:"description=Second addend"`
//	}
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(tc *core.ToolContext, args map[string]any) (map[string]any, error),
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	return NewFunctionTool(name, description, reflectSchema(structType), fn, optFns...)
}

// reflectSchema builds a plain schema map from a struct type. Definitions are
// inlined so providers that reject $ref receive a self-contained object.
func reflectSchema(structType any) map[string]any {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(structType)

	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// Name returns the unique tool name used in declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Declaration returns the function declaration advertised to the model.
func (t *FunctionTool) Declaration() *core.FunctionDeclaration {
	return &core.FunctionDeclaration{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
	}
}

// IsLongRunning reports whether results arrive out of band.
func (t *FunctionTool) IsLongRunning() bool { return t.longRunning }

// Run validates the provided args against the declared schema then invokes
// the underlying function. Validation or execution failures are wrapped (or
// passed through) as *ToolError for uniform downstream handling.
func (t *FunctionTool) Run(tc *core.ToolContext, args map[string]any) (map[string]any, error) {
	logger := tc.Invocation.Log()
	start := time.Now()

	logger.Debug("tool.run.start", "tool", t.name, "fc_id", tc.FunctionCallID)

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.run.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(tc, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok { // Already a ToolError -> just log and forward
			logger.Error("tool.run.error", "tool", t.name, "error", toolErr.Message)

			return nil, toolErr
		}

		logger.Error("tool.run.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	logger.Info("tool.run.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
