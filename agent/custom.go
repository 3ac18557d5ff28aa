package agent

import (
	"github.com/agentloop/agentloop/core"
)

// ExecuteFunc is the body of a CustomAgent: it performs arbitrary work and
// streams events through emit. Returning an error surfaces it as an error
// event on the agent's stream.
type ExecuteFunc func(ic *core.InvocationContext, emit func(core.Event)) error

// CustomAgentOptions configure a CustomAgent.
type CustomAgentOptions struct {
	Description     string
	SubAgents       []core.Agent
	BeforeCallbacks []core.AgentCallback
	AfterCallbacks  []core.AgentCallback
}

// CustomAgent wraps a plain Go function as an agent, with the same
// before/after callback envelope as model-backed agents. Useful for
// deterministic steps (retrieval, formatting, routing) inside agent trees.
type CustomAgent struct {
	BaseAgent
	execute         ExecuteFunc
	beforeCallbacks []core.AgentCallback
	afterCallbacks  []core.AgentCallback
}

var _ core.Agent = (*CustomAgent)(nil)

// NewCustomAgent wraps execute as an agent.
func NewCustomAgent(name string, execute ExecuteFunc, optFns ...func(o *CustomAgentOptions)) *CustomAgent {
	opts := CustomAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &CustomAgent{
		BaseAgent:       NewBaseAgent(name),
		execute:         execute,
		beforeCallbacks: opts.BeforeCallbacks,
		afterCallbacks:  opts.AfterCallbacks,
	}
	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}
	if len(opts.SubAgents) > 0 {
		a.SetSubAgents(a, opts.SubAgents...)
	}
	return a
}

// Run implements core.Agent.
func (a *CustomAgent) Run(ic *core.InvocationContext) (<-chan core.Event, error) {
	ic = ic.WithAgent(a)
	out := make(chan core.Event, eventBufferSize)
	go func() {
		defer close(out)

		if done := runBeforeAgent(ic, a.beforeCallbacks, out); done {
			return
		}

		emit := func(ev core.Event) {
			if ev.InvocationID == "" {
				ev.InvocationID = ic.InvocationID
			}
			if ev.Author == "" {
				ev.Author = a.Name()
			}
			if ev.Branch == "" {
				ev.Branch = ic.Branch
			}
			out <- ev
		}

		if err := a.execute(ic, emit); err != nil {
			ic.Log().Error("agent.custom.error", "agent", a.Name(), "error", err.Error())
			out <- core.NewErrorEvent(ic.InvocationID, a.Name(), core.ErrorCodeModelError, err.Error())
			return
		}

		runAfterAgent(ic, a.afterCallbacks, out)
	}()
	return out, nil
}
