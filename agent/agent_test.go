package agent

import (
	"context"
	"testing"
	"time"

	"github.com/agentloop/agentloop/core"
	"github.com/stretchr/testify/assert"
)

// scriptedAgent emits a fixed event sequence when run.
type scriptedAgent struct {
	BaseAgent
	events []core.Event
	runs   int
}

func newScriptedAgent(name string, events ...core.Event) *scriptedAgent {
	return &scriptedAgent{BaseAgent: NewBaseAgent(name), events: events}
}

func (a *scriptedAgent) Run(ic *core.InvocationContext) (<-chan core.Event, error) {
	a.runs++
	out := make(chan core.Event, len(a.events)+1)
	for _, ev := range a.events {
		if ev.InvocationID == "" {
			ev.InvocationID = ic.InvocationID
		}
		out <- ev
	}
	close(out)
	return out, nil
}

func newAgentIC() *core.InvocationContext {
	ic := core.NewInvocationContext(context.Background())
	ic.AppName = "test-app"
	ic.UserID = "user-1"
	ic.InvocationID = core.NewID()
	ic.UserContent = core.NewUserContent("hello")
	ic.Session = &core.Session{
		ID:      "sess-1",
		AppName: "test-app",
		UserID:  "user-1",
		State:   map[string]any{},
	}
	return ic
}

func drain(t *testing.T, ch <-chan core.Event) []core.Event {
	t.Helper()
	var events []core.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out draining events")
		}
	}
}

func textEvent(author, text string) core.Event {
	return core.NewTextEvent("", author, text)
}

func escalateEvent(author string) core.Event {
	ev := core.NewEvent("", author)
	ev.Actions.Escalate = true
	return ev
}

func TestBaseAgent_Hierarchy(t *testing.T) {
	child := newScriptedAgent("Child")
	parent := NewSequentialAgent("Parent", child)

	assert.Equal(t, "Parent", parent.Name())
	assert.Len(t, parent.SubAgents(), 1)
	assert.Equal(t, parent, child.Parent())

	assert.Equal(t, "Agent Child", child.Description())
	child.SetDescription("Does child things.")
	assert.Equal(t, "Does child things.", child.Description())
}
