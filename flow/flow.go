// Package flow provides the execution pipeline driving a single LLM agent:
// request assembly via pluggable processors, the model/tool iteration loop and
// parallel function call execution.
package flow

import (
	"fmt"

	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/model"
	"github.com/agentloop/agentloop/telemetry"
)

// eventBufferSize is the channel buffer for emitted events per flow run.
const eventBufferSize = 100

// Flow defines the interface for agent execution flows. A flow orchestrates
// the complete pipeline from request assembly to the final response event.
type Flow interface {
	// Execute runs the flow within the invocation. It returns a channel of
	// events representing execution progress, closed on completion.
	Execute(ic *core.InvocationContext) (<-chan core.Event, error)
}

// LlmFlowAgent is the view of an agent the flow needs: identity, model,
// instruction and tool resolution, and transfer configuration.
type LlmFlowAgent interface {
	Name() string

	// Model returns the language model driving generation.
	Model() model.Model

	// ResolveInstruction produces the raw system instruction for this turn.
	ResolveInstruction(cc *core.CallbackContext) (string, error)

	// ResolveTools returns the callable tools for this invocation, keyed by
	// name. A failing toolset is skipped, not fatal.
	ResolveTools(ic *core.InvocationContext) map[string]core.Tool

	// SubAgents returns the agents control can be transferred to.
	SubAgents() []core.Agent

	// TransferEnabled reports whether the transfer tool is injected.
	TransferEnabled() bool

	// OutputKey names the state key receiving the final response text, or
	// empty.
	OutputKey() string

	// MaxHistoryEvents caps the conversation history included per request.
	// Zero means unlimited.
	MaxHistoryEvents() int
}

// RequestProcessor mutates the model request before generation. Registration
// order defines execution order.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before model execution.
	ProcessRequest(ic *core.InvocationContext, req *core.LlmRequest, agent LlmFlowAgent) error
}

// LlmFlow is the standard request -> model -> (tool loop) cycle with
// pluggable request processors and a parallel function executor.
type LlmFlow struct {
	agent             LlmFlowAgent
	requestProcessors []RequestProcessor
	executor          FunctionExecutor
}

// LlmFlowOptions configure a flow instance.
type LlmFlowOptions struct {
	// Executor runs function call batches. Defaults to the parallel
	// executor with unbounded parallelism.
	Executor FunctionExecutor
}

// NewLlmFlow creates a flow for the agent with the default processor pipeline:
// instructions, transfer injection, contents, tool declarations.
func NewLlmFlow(agent LlmFlowAgent, optFns ...func(o *LlmFlowOptions)) *LlmFlow {
	opts := LlmFlowOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Executor == nil {
		opts.Executor = NewParallelFunctionExecutor(FunctionExecutorConfig{})
	}
	return &LlmFlow{
		agent: agent,
		requestProcessors: []RequestProcessor{
			NewInstructionsProcessor(),
			NewTransferProcessor(),
			NewContentsProcessor(),
			NewDeclarationsProcessor(),
		},
		executor: opts.Executor,
	}
}

// AddRequestProcessor appends a request processor after the default pipeline.
func (f *LlmFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// Execute launches the flow asynchronously and returns a channel of events.
// The channel is closed when a final response is emitted, the iteration limit
// is hit, or an unrecoverable error occurs.
func (f *LlmFlow) Execute(ic *core.InvocationContext) (<-chan core.Event, error) {
	out := make(chan core.Event, eventBufferSize)
	go func() {
		defer close(out)
		f.run(ic, out)
	}()
	return out, nil
}

func (f *LlmFlow) run(ic *core.InvocationContext, out chan<- core.Event) {
	// Work on a private session snapshot so emitted events extend the
	// conversation seen by later iterations without racing the committer.
	local := *ic
	if ic.Session != nil {
		local.Session = ic.Session.Clone()
	}

	maxIter := ic.RunConfig.EffectiveMaxIterations()
	for i := 0; i < maxIter; i++ {
		if ic.Ended() || local.Context.Err() != nil {
			return
		}
		if done := f.runOnce(&local, out); done {
			return
		}
	}

	ic.Log().Warn("flow.iteration_limit", "agent", f.agent.Name(), "max_iterations", maxIter)
	f.emit(&local, out, core.NewErrorEvent(
		ic.InvocationID,
		f.agent.Name(),
		core.ErrorCodeIterationLimit,
		fmt.Sprintf("no final response after %d iterations", maxIter),
	))
}

// runOnce performs one model turn including any tool executions. It returns
// true when the flow should terminate.
func (f *LlmFlow) runOnce(ic *core.InvocationContext, out chan<- core.Event) bool {
	logger := ic.Log()

	req := new(core.LlmRequest)
	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(ic, req, f.agent); err != nil {
			logger.Error("flow.processor.failed", "agent", f.agent.Name(), "processor", processor.Name(), "error", err.Error())
			f.emit(ic, out, core.NewErrorEvent(ic.InvocationID, f.agent.Name(), core.ErrorCodeModelError,
				fmt.Sprintf("request processor %s failed: %v", processor.Name(), err)))
			return true
		}
	}

	tools := f.agent.ResolveTools(ic)

	cc := core.NewCallbackContext(ic)
	resp, err := f.generate(ic, cc, req)
	if err != nil {
		logger.Error("flow.model.failed", "agent", f.agent.Name(), "error", err.Error())
		f.emit(ic, out, core.NewErrorEvent(ic.InvocationID, f.agent.Name(), core.ErrorCodeModelError, err.Error()))
		return true
	}

	ev := f.buildModelEvent(ic, cc, resp, tools)
	if !f.emit(ic, out, ev) {
		return true
	}

	if ic.Ended() {
		return true
	}

	if fnCalls := ev.GetFunctionCalls(); len(fnCalls) > 0 {
		merged := f.executor.Execute(ic, f.agent, tools, fnCalls)
		if !f.emit(ic, out, merged) {
			return true
		}

		if merged.Actions.TransferToAgent != "" || merged.Actions.Escalate {
			return true
		}
		return merged.IsFinalResponse()
	}

	return ev.IsFinalResponse()
}

// generate runs the model call wrapped in the plugin chain: before_model may
// short-circuit, on_model_error may recover, after_model may replace.
func (f *LlmFlow) generate(ic *core.InvocationContext, cc *core.CallbackContext, req *core.LlmRequest) (*core.LlmResponse, error) {
	chain := ic.Plugins

	resp, err := chain.RunBeforeModel(cc, req)
	if err != nil {
		return nil, err
	}

	if resp == nil {
		m := f.agent.Model()
		info := m.Info()

		ctx, span := telemetry.StartModelSpan(ic.Context, info.Provider, info.Name)
		resp, err = m.GenerateContent(ctx, req)
		if err != nil {
			telemetry.RecordError(span, err)
			span.End()

			recovered, recErr := chain.RunOnModelError(cc, req, err)
			if recErr != nil {
				return nil, recErr
			}
			if recovered == nil {
				return nil, err
			}
			resp = recovered
		} else {
			if resp.UsageMetadata != nil {
				telemetry.RecordUsage(span, resp.UsageMetadata.PromptTokens, resp.UsageMetadata.CompletionTokens, resp.UsageMetadata.TotalTokens)
			}
			span.End()
		}
	}

	if replaced, err := chain.RunAfterModel(cc, resp); err != nil {
		return nil, err
	} else if replaced != nil {
		resp = replaced
	}

	return resp, nil
}

// buildModelEvent converts a model response into an event, attaching pending
// callback actions and recording calls to long-running tools.
func (f *LlmFlow) buildModelEvent(ic *core.InvocationContext, cc *core.CallbackContext, resp *core.LlmResponse, tools map[string]core.Tool) core.Event {
	ev := core.NewEvent(ic.InvocationID, f.agent.Name())
	ev.Branch = ic.Branch
	ev.Content = resp.Content
	ev.Partial = resp.Partial
	ev.TurnComplete = resp.TurnComplete
	ev.FinishReason = resp.FinishReason
	ev.UsageMetadata = resp.UsageMetadata
	ev.Actions = cc.Actions()

	for _, fc := range ev.GetFunctionCalls() {
		if t, ok := tools[fc.Name]; ok && t.IsLongRunning() {
			ev.LongRunningToolIDs = append(ev.LongRunningToolIDs, fc.ID)
		}
	}

	// A settled text response feeds the output key, if configured.
	if key := f.agent.OutputKey(); key != "" && ev.IsFinalResponse() {
		if text := ev.Content.Text(); text != "" {
			if ev.Actions.StateDelta == nil {
				ev.Actions.StateDelta = map[string]any{}
			}
			ev.Actions.StateDelta[key] = text
		}
	}

	return ev
}

// emit forwards the event and folds it into the flow-local conversation so
// the next iteration sees it. Returns false when the consumer is gone.
func (f *LlmFlow) emit(ic *core.InvocationContext, out chan<- core.Event, ev core.Event) bool {
	select {
	case out <- ev:
	case <-ic.Context.Done():
		return false
	}
	if !ev.Partial {
		core.ApplyEventLocal(ic.Session, ev)
	}
	return true
}
