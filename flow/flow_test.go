package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTool is a configurable core.Tool for executor and flow tests.
type mockTool struct {
	name        string
	longRunning bool
	delay       time.Duration
	result      map[string]any
	err         error
	panicMsg    any
	stateDelta  map[string]any
	transferTo  string
	escalate    bool
	skipSummary bool
}

func (mt *mockTool) Name() string        { return mt.name }
func (mt *mockTool) Description() string { return "mock tool" }
func (mt *mockTool) Declaration() *core.FunctionDeclaration {
	return &core.FunctionDeclaration{
		Name:        mt.name,
		Description: "mock tool",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}
}
func (mt *mockTool) IsLongRunning() bool { return mt.longRunning }
func (mt *mockTool) Run(tc *core.ToolContext, _ map[string]any) (map[string]any, error) {
	if mt.delay > 0 {
		select {
		case <-time.After(mt.delay):
		case <-tc.Invocation.Context.Done():
			return nil, tc.Invocation.Context.Err()
		}
	}
	if mt.panicMsg != nil {
		panic(mt.panicMsg)
	}
	for k, v := range mt.stateDelta {
		tc.SetState(k, v)
	}
	if mt.transferTo != "" {
		tc.TransferToAgent(mt.transferTo)
	}
	if mt.escalate {
		tc.Escalate()
	}
	if mt.skipSummary {
		tc.SkipSummarization()
	}
	return mt.result, mt.err
}

// flowTestAgent satisfies LlmFlowAgent without the full agent machinery.
type flowTestAgent struct {
	name        string
	llm         model.Model
	instruction string
	tools       map[string]core.Tool
	subAgents   []core.Agent
	transfer    bool
	outputKey   string
	maxHistory  int
}

func (a *flowTestAgent) Name() string { return a.name }
func (a *flowTestAgent) Model() model.Model {
	return a.llm
}
func (a *flowTestAgent) ResolveInstruction(*core.CallbackContext) (string, error) {
	return a.instruction, nil
}
func (a *flowTestAgent) ResolveTools(*core.InvocationContext) map[string]core.Tool {
	return a.tools
}
func (a *flowTestAgent) SubAgents() []core.Agent { return a.subAgents }
func (a *flowTestAgent) TransferEnabled() bool   { return a.transfer }
func (a *flowTestAgent) OutputKey() string       { return a.outputKey }
func (a *flowTestAgent) MaxHistoryEvents() int   { return a.maxHistory }

func newFlowIC(userText string) *core.InvocationContext {
	ic := core.NewInvocationContext(context.Background())
	ic.AppName = "test-app"
	ic.UserID = "user-1"
	ic.InvocationID = core.NewID()
	ic.UserContent = core.NewUserContent(userText)
	ic.Session = &core.Session{
		ID:      "sess-1",
		AppName: "test-app",
		UserID:  "user-1",
		State:   map[string]any{},
	}
	return ic
}

func collect(t *testing.T, ch <-chan core.Event) []core.Event {
	t.Helper()
	var events []core.Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatal("timed out draining event channel")
		}
	}
}

func functionCallResponse(calls ...core.FunctionCall) *core.LlmResponse {
	parts := make([]core.Part, len(calls))
	for i, fc := range calls {
		parts[i] = core.FunctionCallPart{FunctionCall: fc}
	}
	return &core.LlmResponse{
		Content:      &core.Content{Role: core.RoleModel, Parts: parts},
		FinishReason: "tool_calls",
	}
}

func TestLlmFlow_FinalTextResponse(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.AddResponse("hello", "hi there")

	agent := &flowTestAgent{name: "Echo", llm: llm}
	flow := NewLlmFlow(agent)

	events := collect(t, mustExecute(t, flow, newFlowIC("hello")))
	require.Len(t, events, 1)
	assert.Equal(t, "Echo", events[0].Author)
	assert.Equal(t, "hi there", events[0].Content.Text())
	assert.True(t, events[0].IsFinalResponse())
	assert.Equal(t, 1, llm.Calls())
}

func TestLlmFlow_ToolRoundTrip(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.Enqueue(
		functionCallResponse(core.FunctionCall{ID: "call-1", Name: "lookup", Args: map[string]any{"q": "x"}}),
		&core.LlmResponse{Content: core.NewModelContent("the answer is 42"), FinishReason: "stop"},
	)

	agent := &flowTestAgent{
		name: "Researcher",
		llm:  llm,
		tools: map[string]core.Tool{
			"lookup": &mockTool{name: "lookup", result: map[string]any{"answer": 42}},
		},
	}
	flow := NewLlmFlow(agent)

	events := collect(t, mustExecute(t, flow, newFlowIC("question")))
	require.Len(t, events, 3)

	// Model event with the pending call.
	assert.Len(t, events[0].GetFunctionCalls(), 1)

	// Merged tool-results event: user role, one response per call.
	toolEv := events[1]
	assert.Equal(t, core.RoleUser, toolEv.Content.Role)
	resps := toolEv.GetFunctionResponses()
	require.Len(t, resps, 1)
	assert.Equal(t, "call-1", resps[0].ID)
	assert.Equal(t, 42, resps[0].Response["answer"])

	// Final summarization.
	assert.Equal(t, "the answer is 42", events[2].Content.Text())
	assert.Equal(t, 2, llm.Calls())
}

func TestLlmFlow_BeforeModelShortCircuit(t *testing.T) {
	llm := model.NewMockModel("test")
	chain, err := core.NewPluginChain(&core.Plugin{
		Name: "cache",
		BeforeModel: func(cc *core.CallbackContext, req *core.LlmRequest) (*core.LlmResponse, error) {
			return &core.LlmResponse{Content: core.NewModelContent("cached"), FinishReason: "stop"}, nil
		},
	})
	require.NoError(t, err)

	ic := newFlowIC("hello")
	ic.Plugins = chain

	agent := &flowTestAgent{name: "Cached", llm: llm}
	events := collect(t, mustExecute(t, NewLlmFlow(agent), ic))

	require.Len(t, events, 1)
	assert.Equal(t, "cached", events[0].Content.Text())
	assert.Equal(t, 0, llm.Calls(), "the model must not be called when short-circuited")
}

func TestLlmFlow_ModelErrorRecovery(t *testing.T) {
	boom := errors.New("rate limited")
	agent := &flowTestAgent{name: "Fragile", llm: &errorModel{err: boom}}

	t.Run("unrecovered error yields error event", func(t *testing.T) {
		events := collect(t, mustExecute(t, NewLlmFlow(agent), newFlowIC("hello")))
		require.Len(t, events, 1)
		assert.Equal(t, core.ErrorCodeModelError, events[0].ErrorCode)
		assert.Contains(t, events[0].ErrorMessage, "rate limited")
	})

	t.Run("on_model_error plugin recovers", func(t *testing.T) {
		chain, err := core.NewPluginChain(&core.Plugin{
			Name: "fallback",
			OnModelError: func(cc *core.CallbackContext, req *core.LlmRequest, modelErr error) (*core.LlmResponse, error) {
				return &core.LlmResponse{Content: core.NewModelContent("fallback answer"), FinishReason: "stop"}, nil
			},
		})
		require.NoError(t, err)

		ic := newFlowIC("hello")
		ic.Plugins = chain
		events := collect(t, mustExecute(t, NewLlmFlow(agent), ic))
		require.Len(t, events, 1)
		assert.Equal(t, "fallback answer", events[0].Content.Text())
	})
}

func TestLlmFlow_IterationLimit(t *testing.T) {
	llm := model.NewMockModel("test")
	// The scripted response repeats forever, so the loop never settles.
	llm.Enqueue(functionCallResponse(core.FunctionCall{ID: "c", Name: "noop", Args: map[string]any{}}))

	agent := &flowTestAgent{
		name:  "Spinner",
		llm:   llm,
		tools: map[string]core.Tool{"noop": &mockTool{name: "noop", result: map[string]any{}}},
	}

	ic := newFlowIC("go")
	ic.RunConfig = core.RunConfig{MaxIterations: 3}

	events := collect(t, mustExecute(t, NewLlmFlow(agent), ic))
	last := events[len(events)-1]
	assert.Equal(t, core.ErrorCodeIterationLimit, last.ErrorCode)
	assert.Equal(t, 3, llm.Calls())
}

func TestLlmFlow_ToolErrorIsNotFatal(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.Enqueue(
		functionCallResponse(core.FunctionCall{ID: "call-1", Name: "flaky", Args: map[string]any{}}),
		&core.LlmResponse{Content: core.NewModelContent("sorry, that failed"), FinishReason: "stop"},
	)

	agent := &flowTestAgent{
		name:  "Resilient",
		llm:   llm,
		tools: map[string]core.Tool{"flaky": &mockTool{name: "flaky", err: errors.New("backend down")}},
	}

	events := collect(t, mustExecute(t, NewLlmFlow(agent), newFlowIC("go")))
	require.Len(t, events, 3)

	resps := events[1].GetFunctionResponses()
	require.Len(t, resps, 1)
	assert.Contains(t, resps[0].Response["error"], "backend down")
	assert.Equal(t, "sorry, that failed", events[2].Content.Text())
}

func TestLlmFlow_LongRunningTool(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.Enqueue(functionCallResponse(core.FunctionCall{ID: "lr-1", Name: "batch_job", Args: map[string]any{}}))

	agent := &flowTestAgent{
		name: "Scheduler",
		llm:  llm,
		tools: map[string]core.Tool{
			"batch_job": &mockTool{name: "batch_job", longRunning: true, result: map[string]any{}},
		},
	}

	events := collect(t, mustExecute(t, NewLlmFlow(agent), newFlowIC("start the job")))
	require.Len(t, events, 2)
	assert.Equal(t, []string{"lr-1"}, events[0].LongRunningToolIDs)

	// The tool never ran; its slot holds a placeholder and the pending id
	// makes the event final.
	merged := events[1]
	resps := merged.GetFunctionResponses()
	require.Len(t, resps, 1)
	assert.Equal(t, "lr-1", resps[0].ID)
	assert.Equal(t, "pending", resps[0].Response["status"])
	assert.Equal(t, []string{"lr-1"}, merged.LongRunningToolIDs)
	assert.True(t, merged.IsFinalResponse())
	assert.Equal(t, 1, llm.Calls())
}

func TestLlmFlow_MixedLongRunningRound(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.Enqueue(functionCallResponse(
		core.FunctionCall{ID: "lr-1", Name: "batch_job", Args: map[string]any{}},
		core.FunctionCall{ID: "fc-2", Name: "fast", Args: map[string]any{}},
	))

	agent := &flowTestAgent{
		name: "Scheduler",
		llm:  llm,
		tools: map[string]core.Tool{
			"batch_job": &mockTool{name: "batch_job", longRunning: true},
			"fast":      &mockTool{name: "fast", result: map[string]any{"v": 1}},
		},
	}

	events := collect(t, mustExecute(t, NewLlmFlow(agent), newFlowIC("go")))
	require.Len(t, events, 2)

	// One response per originating call, in call order, with the pending id
	// carried so the round ends instead of calling the model again.
	merged := events[1]
	resps := merged.GetFunctionResponses()
	require.Len(t, resps, 2)
	assert.Equal(t, "lr-1", resps[0].ID)
	assert.Equal(t, "pending", resps[0].Response["status"])
	assert.Equal(t, "fc-2", resps[1].ID)
	assert.Equal(t, 1, resps[1].Response["v"])
	assert.Equal(t, []string{"lr-1"}, merged.LongRunningToolIDs)
	assert.True(t, merged.IsFinalResponse())
	assert.Equal(t, 1, llm.Calls(), "the loop awaits out-of-band resolution")
}

func TestLlmFlow_EmitAbortsWhenConsumerGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ic := newFlowIC("x")
	ic.Context = ctx

	f := NewLlmFlow(&flowTestAgent{name: "A"})

	// Nobody reads this channel; without the cancellation branch the send
	// would block forever.
	out := make(chan core.Event)
	sent := f.emit(ic, out, core.NewTextEvent(ic.InvocationID, "A", "hi"))
	assert.False(t, sent)
	assert.Empty(t, ic.Session.Events, "aborted emits are not folded into the local history")
}

func TestLlmFlow_OutputKey(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.AddResponse("hello", "final text")

	agent := &flowTestAgent{name: "Writer", llm: llm, outputKey: "last_reply"}
	events := collect(t, mustExecute(t, NewLlmFlow(agent), newFlowIC("hello")))

	require.Len(t, events, 1)
	assert.Equal(t, "final text", events[0].Actions.StateDelta["last_reply"])
}

func TestLlmFlow_TransferStopsLoop(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.Enqueue(functionCallResponse(core.FunctionCall{ID: "t-1", Name: "handoff", Args: map[string]any{}}))

	agent := &flowTestAgent{
		name: "Router",
		llm:  llm,
		tools: map[string]core.Tool{
			"handoff": &mockTool{name: "handoff", transferTo: "Specialist", result: map[string]any{"transferred": true}},
		},
	}

	events := collect(t, mustExecute(t, NewLlmFlow(agent), newFlowIC("route me")))
	require.Len(t, events, 2, "the flow stops after a transfer instead of summarizing")
	assert.Equal(t, "Specialist", events[1].Actions.TransferToAgent)
	assert.Equal(t, 1, llm.Calls())
}

// errorModel always fails generation.
type errorModel struct{ err error }

func (m *errorModel) GenerateContent(context.Context, *core.LlmRequest) (*core.LlmResponse, error) {
	return nil, m.err
}
func (m *errorModel) Info() model.Info { return model.Info{Name: "error", Provider: "mock"} }

func mustExecute(t *testing.T, f Flow, ic *core.InvocationContext) <-chan core.Event {
	t.Helper()
	ch, err := f.Execute(ic)
	require.NoError(t, err)
	return ch
}
