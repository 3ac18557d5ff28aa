package agent

import (
	"fmt"
	"sync"

	"github.com/agentloop/agentloop/core"
)

// ParallelAgent coordinates the concurrent execution of multiple child
// agents. Each child runs on its own branch path ("parent.child") so
// downstream consumers can attribute events to their execution path, while
// all children share the same session snapshot.
type ParallelAgent struct {
	BaseAgent
}

var _ core.Agent = (*ParallelAgent)(nil)

// NewParallelAgent creates a parallel execution coordinator.
func NewParallelAgent(name string, children ...core.Agent) *ParallelAgent {
	a := &ParallelAgent{BaseAgent: NewBaseAgent(name)}
	a.SetSubAgents(a, children...)
	return a
}

// Run implements core.Agent launching all children concurrently. Events are
// interleaved in arrival order; the stream closes once every child finished.
func (p *ParallelAgent) Run(ic *core.InvocationContext) (<-chan core.Event, error) {
	ic = ic.WithAgent(p)
	out := make(chan core.Event, eventBufferSize)

	go func() {
		defer close(out)

		var wg sync.WaitGroup
		for _, child := range p.SubAgents() {
			branchCtx := ic.WithBranch(fmt.Sprintf("%s.%s", p.Name(), child.Name()))

			events, err := child.Run(branchCtx)
			if err != nil {
				ic.Log().Error("agent.parallel.child_failed", "agent", p.Name(), "child", child.Name(), "error", err.Error())
				out <- core.NewErrorEvent(ic.InvocationID, p.Name(), core.ErrorCodeModelError, err.Error())
				continue
			}

			wg.Add(1)
			go func(events <-chan core.Event) {
				defer wg.Done()
				for ev := range events {
					select {
					case out <- ev:
					case <-ic.Context.Done():
						return
					}
				}
			}(events)
		}
		wg.Wait()
	}()

	return out, nil
}
