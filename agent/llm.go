package agent

import (
	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/flow"
	"github.com/agentloop/agentloop/model"
	"github.com/agentloop/agentloop/telemetry"
	"github.com/agentloop/agentloop/tool"
)

// LlmAgentOptions configures an LlmAgent instance. Use functional options
// with NewLlmAgent to override defaults.
type LlmAgentOptions struct {
	Description      string
	Instruction      Instruction
	Tools            []core.Tool
	Toolsets         []core.Toolset
	SubAgents        []core.Agent
	OutputKey        string
	MaxHistoryEvents int
	AllowTransfer    bool
	BeforeCallbacks  []core.AgentCallback
	AfterCallbacks   []core.AgentCallback

	// Flow overrides the default LlmFlow, mainly for tests.
	Flow flow.Flow
}

// LlmAgent integrates with a language model to process natural language
// inputs and generate responses.
//
// This agent implementation supports:
//   - Natural language conversation through system instructions
//   - Function calling with registered tools and toolsets
//   - Session state output keys and template-based instructions
//   - Transfer of control to sub-agents
//   - Before/after callbacks wrapping execution
//
// LlmAgent embeds BaseAgent to inherit identity and hierarchy management.
type LlmAgent struct {
	BaseAgent
	llm              model.Model
	instruction      Instruction
	tools            map[string]core.Tool
	toolsets         []core.Toolset
	outputKey        string
	maxHistoryEvents int
	allowTransfer    bool
	beforeCallbacks  []core.AgentCallback
	afterCallbacks   []core.AgentCallback
	flow             flow.Flow
}

var (
	_ core.Agent        = (*LlmAgent)(nil)
	_ flow.LlmFlowAgent = (*LlmAgent)(nil)
)

// NewLlmAgent creates a new model-backed agent with sensible defaults:
// transfer enabled, unlimited history, a generic assistant instruction.
func NewLlmAgent(name string, llm model.Model, optFns ...func(o *LlmAgentOptions)) *LlmAgent {
	opts := LlmAgentOptions{
		Instruction:   NewInstructionFromText("You are " + name + ", a helpful AI assistant."),
		AllowTransfer: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &LlmAgent{
		BaseAgent:        NewBaseAgent(name),
		llm:              llm,
		instruction:      opts.Instruction,
		tools:            map[string]core.Tool{},
		toolsets:         opts.Toolsets,
		outputKey:        opts.OutputKey,
		maxHistoryEvents: opts.MaxHistoryEvents,
		allowTransfer:    opts.AllowTransfer,
		beforeCallbacks:  opts.BeforeCallbacks,
		afterCallbacks:   opts.AfterCallbacks,
	}
	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}
	for _, t := range opts.Tools {
		a.tools[t.Name()] = t
	}
	if len(opts.SubAgents) > 0 {
		a.SetSubAgents(a, opts.SubAgents...)
	}

	a.flow = opts.Flow
	if a.flow == nil {
		a.flow = flow.NewLlmFlow(a)
	}
	return a
}

// RegisterTool adds a tool to the agent's capability set.
func (a *LlmAgent) RegisterTool(t core.Tool) { a.tools[t.Name()] = t }

// RegisterTools adds multiple tools to the agent's capability set.
func (a *LlmAgent) RegisterTools(tools ...core.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// Model returns the language model instance.
func (a *LlmAgent) Model() model.Model { return a.llm }

// ResolveInstruction produces the raw system instruction for this turn.
func (a *LlmAgent) ResolveInstruction(cc *core.CallbackContext) (string, error) {
	return a.instruction.Resolve(cc)
}

// ResolveTools returns the callable tools for this invocation: registered
// tools, toolset contributions and, with transfer enabled, the transfer tool.
// A failing toolset is skipped with a warning.
func (a *LlmAgent) ResolveTools(ic *core.InvocationContext) map[string]core.Tool {
	resolved := make(map[string]core.Tool, len(a.tools)+1)
	for name, t := range a.tools {
		resolved[name] = t
	}
	for _, ts := range a.toolsets {
		tools, err := ts.Tools(ic)
		if err != nil {
			ic.Log().Warn("agent.toolset.failed", "agent", a.Name(), "toolset", ts.Name(), "error", err.Error())
			continue
		}
		for _, t := range tools {
			resolved[t.Name()] = t
		}
	}
	if a.TransferEnabled() {
		transfer := tool.NewTransferToAgentTool()
		resolved[transfer.Name()] = transfer
	}
	return resolved
}

// TransferEnabled reports whether the transfer tool is injected. Transfer
// needs at least one reachable agent besides this one.
func (a *LlmAgent) TransferEnabled() bool {
	return a.allowTransfer && (len(a.SubAgents()) > 0 || a.Parent() != nil)
}

// OutputKey returns the session state key receiving final responses.
func (a *LlmAgent) OutputKey() string { return a.outputKey }

// MaxHistoryEvents returns the conversation history cap, zero for unlimited.
func (a *LlmAgent) MaxHistoryEvents() int { return a.maxHistoryEvents }

// Run implements core.Agent. It wraps the flow with the before/after agent
// callback chain and streams flow events.
func (a *LlmAgent) Run(ic *core.InvocationContext) (<-chan core.Event, error) {
	ic = ic.WithAgent(a)
	out := make(chan core.Event, eventBufferSize)
	go func() {
		defer close(out)
		a.run(ic, out)
	}()
	return out, nil
}

func (a *LlmAgent) run(ic *core.InvocationContext, out chan<- core.Event) {
	logger := ic.Log()
	logger.Debug("agent.run.start", "agent", a.Name(), "invocation", ic.InvocationID)

	ctx, span := telemetry.StartAgentSpan(ic.Context, a.Name())
	defer span.End()
	scoped := *ic
	scoped.Context = ctx
	ic = &scoped

	if done := runBeforeAgent(ic, a.beforeCallbacks, out); done {
		return
	}

	events, err := a.flow.Execute(ic)
	if err != nil {
		logger.Error("agent.flow.execute.error", "agent", a.Name(), "error", err.Error())
		telemetry.RecordError(span, err)
		out <- core.NewErrorEvent(ic.InvocationID, a.Name(), core.ErrorCodeModelError, err.Error())
		return
	}

	for ev := range events {
		select {
		case out <- ev:
		case <-ic.Context.Done():
			logger.Warn("agent.run.context_done", "agent", a.Name(), "error", ic.Context.Err())
			return
		}
	}

	runAfterAgent(ic, a.afterCallbacks, out)

	logger.Debug("agent.run.complete", "agent", a.Name())
}

// runBeforeAgent executes the before-agent chain (plugins first, then agent
// callbacks). A non-nil content short-circuits the agent; the returned bool
// reports whether the agent should stop. Pending state writes ride the
// emitted event.
func runBeforeAgent(ic *core.InvocationContext, callbacks []core.AgentCallback, out chan<- core.Event) bool {
	cc := core.NewCallbackContext(ic)

	content, err := ic.Plugins.RunBeforeAgent(cc)
	if err != nil {
		out <- core.NewErrorEvent(ic.InvocationID, ic.AgentName(), core.ErrorCodeModelError, err.Error())
		return true
	}
	if content == nil {
		for _, cb := range callbacks {
			content, err = cb(cc)
			if err != nil {
				out <- core.NewErrorEvent(ic.InvocationID, ic.AgentName(), core.ErrorCodeModelError, err.Error())
				return true
			}
			if content != nil {
				break
			}
		}
	}

	actions := cc.Actions()
	if content != nil {
		ev := core.NewEvent(ic.InvocationID, ic.AgentName())
		ev.Branch = ic.Branch
		ev.Content = content
		ev.Actions = actions
		out <- ev
		return true
	}

	// State written by callbacks that did not short-circuit still commits.
	if len(actions.StateDelta) > 0 {
		ev := core.NewEvent(ic.InvocationID, ic.AgentName())
		ev.Branch = ic.Branch
		ev.Actions = actions
		out <- ev
	}
	return false
}

// runAfterAgent executes the after-agent chain; a non-nil content is emitted
// as an additional closing event.
func runAfterAgent(ic *core.InvocationContext, callbacks []core.AgentCallback, out chan<- core.Event) {
	cc := core.NewCallbackContext(ic)

	content, err := ic.Plugins.RunAfterAgent(cc)
	if err != nil {
		out <- core.NewErrorEvent(ic.InvocationID, ic.AgentName(), core.ErrorCodeModelError, err.Error())
		return
	}
	if content == nil {
		for _, cb := range callbacks {
			content, err = cb(cc)
			if err != nil {
				out <- core.NewErrorEvent(ic.InvocationID, ic.AgentName(), core.ErrorCodeModelError, err.Error())
				return
			}
			if content != nil {
				break
			}
		}
	}

	actions := cc.Actions()
	if content != nil || len(actions.StateDelta) > 0 {
		ev := core.NewEvent(ic.InvocationID, ic.AgentName())
		ev.Branch = ic.Branch
		ev.Content = content
		ev.Actions = actions
		out <- ev
	}
}
