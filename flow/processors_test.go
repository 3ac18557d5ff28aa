package flow

import (
	"testing"

	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionsProcessor_TemplateRendering(t *testing.T) {
	agent := &flowTestAgent{name: "A", instruction: "Assist {{.name}} with their request."}
	ic := newFlowIC("hi")
	ic.Session.State["name"] = "Alice"

	req := new(core.LlmRequest)
	require.NoError(t, NewInstructionsProcessor().ProcessRequest(ic, req, agent))
	assert.Equal(t, "Assist Alice with their request.", req.SystemInstruction)
}

func TestInstructionsProcessor_AppendsToExisting(t *testing.T) {
	agent := &flowTestAgent{name: "A", instruction: "Second part."}
	req := &core.LlmRequest{SystemInstruction: "First part."}

	require.NoError(t, NewInstructionsProcessor().ProcessRequest(newFlowIC("hi"), req, agent))
	assert.Equal(t, "First part.\n\nSecond part.", req.SystemInstruction)
}

func TestContentsProcessor_HistoryAssembly(t *testing.T) {
	agent := &flowTestAgent{name: "A"}
	ic := newFlowIC("latest")

	ic.Session.Events = []core.Event{
		testutil.NewEventBuilder().Author("user").Invocation(ic.InvocationID).UserText("earlier question").Build(),
		testutil.NewEventBuilder().Author("A").Invocation(ic.InvocationID).ModelText("earlier answer").Build(),
		testutil.NewEventBuilder().Author("A").Invocation(ic.InvocationID).ModelText("chu").Partial().Build(),
		testutil.NewEventBuilder().Author("A").Invocation(ic.InvocationID).Build(),
	}

	req := new(core.LlmRequest)
	require.NoError(t, NewContentsProcessor().ProcessRequest(ic, req, agent))

	require.Len(t, req.Contents, 2, "partial and contentless events are skipped")
	assert.Equal(t, "earlier question", req.Contents[0].Text())
	assert.Equal(t, "earlier answer", req.Contents[1].Text())
}

func TestContentsProcessor_HistoryCap(t *testing.T) {
	agent := &flowTestAgent{name: "A", maxHistory: 2}
	ic := newFlowIC("latest")
	for i := 0; i < 5; i++ {
		ic.Session.Events = append(ic.Session.Events,
			core.NewTextEvent(ic.InvocationID, "A", "msg"))
	}

	req := new(core.LlmRequest)
	require.NoError(t, NewContentsProcessor().ProcessRequest(ic, req, agent))
	assert.Len(t, req.Contents, 2)
}

func TestContentsProcessor_FallsBackToUserContent(t *testing.T) {
	agent := &flowTestAgent{name: "A"}
	ic := newFlowIC("the opening message")

	req := new(core.LlmRequest)
	require.NoError(t, NewContentsProcessor().ProcessRequest(ic, req, agent))
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "the opening message", req.Contents[0].Text())
}

func TestDeclarationsProcessor(t *testing.T) {
	agent := &flowTestAgent{name: "A", tools: map[string]core.Tool{
		"one": &mockTool{name: "one"},
		"two": &mockTool{name: "two"},
	}}

	req := new(core.LlmRequest)
	require.NoError(t, NewDeclarationsProcessor().ProcessRequest(newFlowIC("hi"), req, agent))
	assert.Len(t, req.Tools, 2)
}

func TestTransferProcessor(t *testing.T) {
	sub := &describedAgent{name: "Specialist", description: "Handles special things."}

	t.Run("appends directory when enabled", func(t *testing.T) {
		agent := &flowTestAgent{name: "A", transfer: true, subAgents: []core.Agent{sub}}
		req := new(core.LlmRequest)
		require.NoError(t, NewTransferProcessor().ProcessRequest(newFlowIC("hi"), req, agent))
		assert.Contains(t, req.SystemInstruction, "transfer_to_agent")
		assert.Contains(t, req.SystemInstruction, "Specialist: Handles special things.")
	})

	t.Run("skipped when disabled", func(t *testing.T) {
		agent := &flowTestAgent{name: "A", transfer: false, subAgents: []core.Agent{sub}}
		req := new(core.LlmRequest)
		require.NoError(t, NewTransferProcessor().ProcessRequest(newFlowIC("hi"), req, agent))
		assert.Empty(t, req.SystemInstruction)
	})

	t.Run("skipped without sub-agents", func(t *testing.T) {
		agent := &flowTestAgent{name: "A", transfer: true}
		req := new(core.LlmRequest)
		require.NoError(t, NewTransferProcessor().ProcessRequest(newFlowIC("hi"), req, agent))
		assert.Empty(t, req.SystemInstruction)
	})
}

type describedAgent struct {
	name        string
	description string
}

func (a *describedAgent) Name() string            { return a.name }
func (a *describedAgent) Description() string     { return a.description }
func (a *describedAgent) SubAgents() []core.Agent { return nil }
func (a *describedAgent) Run(*core.InvocationContext) (<-chan core.Event, error) {
	ch := make(chan core.Event)
	close(ch)
	return ch, nil
}
