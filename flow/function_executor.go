package flow

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/telemetry"
)

// FunctionExecutor executes a batch of function calls, possibly in parallel,
// and folds the results into a single tool-results event. Implementations
// must:
//   - Respect context cancellation
//   - Never panic (recover internally and convert to error responses)
//   - Produce exactly one FunctionResponse per incoming FunctionCall, in
//     call order
//   - Answer calls to long-running tools with an immediate placeholder and
//     record their ids on the event, without running the tool in-process
//   - Merge ToolContext accumulated actions into the returned event
type FunctionExecutor interface {
	Execute(ic *core.InvocationContext, agent LlmFlowAgent, tools map[string]core.Tool, fnCalls []core.FunctionCall) core.Event
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel int // 0 or <1 => no explicit limit (len(fnCalls))
}

// parallelFunctionExecutor is the default implementation.
type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs a new executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

// callOutcome pairs one call's response part with its accumulated actions.
type callOutcome struct {
	response core.FunctionResponse
	actions  core.EventActions
}

// Execute fans the calls out, waits for all of them and returns the merged
// tool-results event with responses in original call order. Long-running
// calls get a placeholder response without executing; a cancelled context
// turns unstarted calls into error responses.
func (e *parallelFunctionExecutor) Execute(
	ic *core.InvocationContext,
	agent LlmFlowAgent,
	tools map[string]core.Tool,
	fnCalls []core.FunctionCall,
) core.Event {
	outcomes := make([]callOutcome, len(fnCalls))

	var exec []int
	for i, fc := range fnCalls {
		if impl, ok := tools[fc.Name]; ok && impl.IsLongRunning() {
			outcomes[i] = placeholderOutcome(fc)
			continue
		}
		exec = append(exec, i)
	}

	switch {
	case len(exec) == 1:
		idx := exec[0]
		if err := ic.Context.Err(); err != nil {
			outcomes[idx] = canceledOutcome(fnCalls[idx], err)
		} else {
			outcomes[idx] = e.executeOne(ic, agent, tools, fnCalls[idx])
		}
	case len(exec) > 1:
		maxPar := e.cfg.MaxParallel
		if maxPar <= 0 || maxPar > len(exec) {
			maxPar = len(exec)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, maxPar)

		batchStart := time.Now()
		for _, idx := range exec {
			if err := ic.Context.Err(); err != nil {
				outcomes[idx] = canceledOutcome(fnCalls[idx], err)
				continue
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int, fc core.FunctionCall) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes[idx] = e.executeOne(ic, agent, tools, fc)
			}(idx, fnCalls[idx])
		}
		wg.Wait()

		ic.Log().Debug(
			"flow.functions.batch.complete",
			"agent", agent.Name(),
			"count", len(exec),
			"parallelism", maxPar,
			"duration_ms", time.Since(batchStart).Milliseconds(),
		)
	}

	return buildToolResultsEvent(ic, agent, tools, fnCalls, outcomes)
}

// placeholderOutcome answers a long-running call; its real result arrives out
// of band as a later user message.
func placeholderOutcome(fc core.FunctionCall) callOutcome {
	return callOutcome{response: core.FunctionResponse{
		ID:       fc.ID,
		Name:     fc.Name,
		Response: map[string]any{"status": "pending"},
	}}
}

// canceledOutcome fills the slot of a call that never started.
func canceledOutcome(fc core.FunctionCall, err error) callOutcome {
	return callOutcome{response: core.FunctionResponse{
		ID:       fc.ID,
		Name:     fc.Name,
		Response: map[string]any{"error": err.Error()},
	}}
}

// executeOne runs a single call through the plugin chain with panic recovery.
func (e *parallelFunctionExecutor) executeOne(
	ic *core.InvocationContext,
	agent LlmFlowAgent,
	tools map[string]core.Tool,
	fc core.FunctionCall,
) callOutcome {
	logger := ic.Log()
	tc := core.NewToolContext(ic, nil, fc.ID)

	_, span := telemetry.StartToolSpan(ic.Context, fc.Name, fc.ID)
	defer span.End()

	start := time.Now()
	result, err := e.runTool(ic, tc, tools, fc)
	dur := time.Since(start)

	logger.Info(
		"flow.function.executed",
		"agent", agent.Name(),
		"function", fc.Name,
		"function_call_id", fc.ID,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		telemetry.RecordError(span, err)
		result = map[string]any{"error": err.Error()}
	}

	return callOutcome{
		response: core.FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: result,
		},
		actions: tc.Actions(),
	}
}

// runTool resolves and invokes the tool behind the plugin chain: before_tool
// may short-circuit, on_tool_error may recover, after_tool may replace.
func (e *parallelFunctionExecutor) runTool(
	ic *core.InvocationContext,
	tc *core.ToolContext,
	tools map[string]core.Tool,
	fc core.FunctionCall,
) (result map[string]any, err error) {
	defer func() { // panic safety
		if r := recover(); r != nil {
			result = nil
			err = panicError(r)
			ic.Log().Error("flow.function.panic", "function", fc.Name, "recover", r)
		}
	}()

	impl, ok := tools[fc.Name]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", fc.Name)
	}

	chain := ic.Plugins

	result, err = chain.RunBeforeTool(tc, impl, fc.Args)
	if err != nil {
		return nil, err
	}

	if result == nil {
		result, err = impl.Run(tc, fc.Args)
		if err != nil {
			recovered, recErr := chain.RunOnToolError(tc, impl, fc.Args, err)
			if recErr != nil {
				return nil, recErr
			}
			if recovered == nil {
				return nil, err
			}
			result = recovered
		}
	}

	if replaced, err := chain.RunAfterTool(tc, impl, fc.Args, result); err != nil {
		return nil, err
	} else if replaced != nil {
		result = replaced
	}

	return result, nil
}

// buildToolResultsEvent folds the per-call outcomes into one user-role event
// preserving call order. Pending long-running ids ride the event so the
// final-response predicate ends the loop.
func buildToolResultsEvent(ic *core.InvocationContext, agent LlmFlowAgent, tools map[string]core.Tool, fnCalls []core.FunctionCall, outcomes []callOutcome) core.Event {
	parts := make([]core.Part, 0, len(outcomes))
	actions := make([]core.EventActions, 0, len(outcomes))
	var pending []string
	for i, o := range outcomes {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: o.response})
		actions = append(actions, o.actions)
		if impl, ok := tools[fnCalls[i].Name]; ok && impl.IsLongRunning() {
			pending = append(pending, fnCalls[i].ID)
		}
	}

	ev := core.NewEvent(ic.InvocationID, agent.Name())
	ev.Branch = ic.Branch
	ev.Content = &core.Content{Role: core.RoleUser, Parts: parts}
	ev.Actions = mergeActions(ic.Log(), actions)
	ev.LongRunningToolIDs = pending
	return ev
}

// panicError converts a recovered panic value to an error without pulling external dependencies.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
