package agent

import (
	"time"

	"github.com/agentloop/agentloop/core"
)

// LoopAgent coordinates the repeated execution of a child agent with
// configurable termination controls: a maximum iteration count, an optional
// predicate over the child's text output, an interval between iterations, and
// escalation events which always stop the loop.
type LoopAgent struct {
	BaseAgent
	child     core.Agent
	maxIters  int
	interval  time.Duration
	predicate func(output string) bool
}

var _ core.Agent = (*LoopAgent)(nil)

// LoopOption defines a configuration function for customizing LoopAgent behavior.
type LoopOption func(*LoopAgent)

// WithMaxIters sets the maximum number of iterations for the loop.
func WithMaxIters(n int) LoopOption {
	return func(l *LoopAgent) { l.maxIters = n }
}

// WithInterval sets the time delay between loop iterations.
func WithInterval(d time.Duration) LoopOption {
	return func(l *LoopAgent) { l.interval = d }
}

// WithPredicate sets a termination condition over the text output of each
// iteration. Returning true terminates the loop early.
//
// Example:
//
//	WithPredicate(func(output string) bool {
//	    return strings.Contains(output, "COMPLETE")
//	})
func WithPredicate(pred func(output string) bool) LoopOption {
	return func(l *LoopAgent) { l.predicate = pred }
}

// NewLoopAgent constructs a looping coordinator around a child agent.
// Defaults: 100 iterations, no interval, no predicate.
func NewLoopAgent(name string, child core.Agent, opts ...LoopOption) *LoopAgent {
	l := &LoopAgent{
		BaseAgent: NewBaseAgent(name),
		child:     child,
		maxIters:  100,
	}
	for _, o := range opts {
		o(l)
	}
	l.SetSubAgents(l, child)
	return l
}

// Run implements core.Agent performing iterative execution with escalation
// detection. Escalation is not an error, just early termination.
func (l *LoopAgent) Run(ic *core.InvocationContext) (<-chan core.Event, error) {
	ic = ic.WithAgent(l)
	out := make(chan core.Event, eventBufferSize)

	go func() {
		defer close(out)

		for i := 0; i < l.maxIters; i++ {
			if ic.Ended() || ic.Context.Err() != nil {
				return
			}

			stop, err := l.runIteration(ic, out)
			if err != nil {
				ic.Log().Error("agent.loop.iteration_failed", "agent", l.Name(), "iteration", i+1, "error", err.Error())
				out <- core.NewErrorEvent(ic.InvocationID, l.Name(), core.ErrorCodeModelError, err.Error())
				return
			}
			if stop {
				return
			}

			if l.interval > 0 && i < l.maxIters-1 {
				select {
				case <-ic.Context.Done():
					return
				case <-time.After(l.interval):
				}
			}
		}
	}()

	return out, nil
}

// runIteration executes one child run and reports whether the loop should
// stop: the child escalated or the predicate matched the iteration's output.
func (l *LoopAgent) runIteration(ic *core.InvocationContext, out chan<- core.Event) (bool, error) {
	events, err := l.child.Run(ic)
	if err != nil {
		return false, err
	}

	stop := false
	var lastText string
	for ev := range events {
		if ev.Actions.Escalate {
			stop = true
		}
		if !ev.Partial {
			if text := ev.Content.Text(); text != "" {
				lastText = text
			}
		}
		select {
		case out <- ev:
		case <-ic.Context.Done():
			return true, nil
		}
	}

	if !stop && l.predicate != nil && l.predicate(lastText) {
		stop = true
	}
	return stop, nil
}
