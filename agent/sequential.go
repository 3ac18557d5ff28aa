package agent

import (
	"github.com/agentloop/agentloop/core"
)

// SequentialAgent coordinates the execution of multiple child agents in
// order. The same invocation context flows through all children so session
// state accumulates across steps. An escalation event from a child stops the
// remaining steps.
type SequentialAgent struct {
	BaseAgent
}

var _ core.Agent = (*SequentialAgent)(nil)

// NewSequentialAgent creates a sequential execution coordinator.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	a := &SequentialAgent{BaseAgent: NewBaseAgent(name)}
	a.SetSubAgents(a, children...)
	return a
}

// Run implements core.Agent. Children execute one after another; the stream
// closes after the last child finishes or a child escalates.
func (s *SequentialAgent) Run(ic *core.InvocationContext) (<-chan core.Event, error) {
	ic = ic.WithAgent(s)
	out := make(chan core.Event, eventBufferSize)
	go func() {
		defer close(out)

		for _, child := range s.SubAgents() {
			if ic.Ended() || ic.Context.Err() != nil {
				return
			}
			escalated, err := forwardChild(ic, child, out)
			if err != nil {
				ic.Log().Error("agent.sequential.child_failed", "agent", s.Name(), "child", child.Name(), "error", err.Error())
				out <- core.NewErrorEvent(ic.InvocationID, s.Name(), core.ErrorCodeModelError, err.Error())
				return
			}
			if escalated {
				return
			}
		}
	}()
	return out, nil
}

// forwardChild runs the child in the given context and forwards its events,
// reporting whether any of them escalated.
func forwardChild(ic *core.InvocationContext, child core.Agent, out chan<- core.Event) (bool, error) {
	events, err := child.Run(ic)
	if err != nil {
		return false, err
	}
	escalated := false
	for ev := range events {
		if ev.Actions.Escalate {
			escalated = true
		}
		select {
		case out <- ev:
		case <-ic.Context.Done():
			return escalated, ic.Context.Err()
		}
	}
	return escalated, nil
}
