package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialAgent_RunsChildrenInOrder(t *testing.T) {
	c1 := newScriptedAgent("First", textEvent("First", "one"))
	c2 := newScriptedAgent("Second", textEvent("Second", "two"))
	c3 := newScriptedAgent("Third", textEvent("Third", "three"))
	seq := NewSequentialAgent("Pipeline", c1, c2, c3)

	events, err := seq.Run(newAgentIC())
	require.NoError(t, err)

	out := drain(t, events)
	require.Len(t, out, 3)
	assert.Equal(t, "First", out[0].Author)
	assert.Equal(t, "Second", out[1].Author)
	assert.Equal(t, "Third", out[2].Author)
}

func TestSequentialAgent_EscalationStopsPipeline(t *testing.T) {
	c1 := newScriptedAgent("First", escalateEvent("First"))
	c2 := newScriptedAgent("Second", textEvent("Second", "never"))
	seq := NewSequentialAgent("Pipeline", c1, c2)

	events, err := seq.Run(newAgentIC())
	require.NoError(t, err)

	out := drain(t, events)
	require.Len(t, out, 1)
	assert.True(t, out[0].Actions.Escalate)
	assert.Equal(t, 0, c2.runs, "children after an escalation must not run")
}

func TestSequentialAgent_NoChildren(t *testing.T) {
	seq := NewSequentialAgent("Empty")
	events, err := seq.Run(newAgentIC())
	require.NoError(t, err)
	assert.Empty(t, drain(t, events))
}

func TestSequentialAgent_EndedInvocationStops(t *testing.T) {
	c1 := newScriptedAgent("First", textEvent("First", "one"))
	seq := NewSequentialAgent("Pipeline", c1)

	ic := newAgentIC()
	ic.EndInvocation()

	events, err := seq.Run(ic)
	require.NoError(t, err)
	assert.Empty(t, drain(t, events))
	assert.Equal(t, 0, c1.runs)
}
