package agent

import (
	"errors"
	"testing"

	"github.com/agentloop/agentloop/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomAgent_EmitsWithDefaults(t *testing.T) {
	custom := NewCustomAgent("Formatter", func(ic *core.InvocationContext, emit func(core.Event)) error {
		emit(core.Event{ID: core.NewID(), Content: core.NewModelContent("formatted")})
		return nil
	})

	ic := newAgentIC()
	events, err := custom.Run(ic)
	require.NoError(t, err)

	out := drain(t, events)
	require.Len(t, out, 1)
	assert.Equal(t, "Formatter", out[0].Author, "emit fills in the author")
	assert.Equal(t, ic.InvocationID, out[0].InvocationID, "emit fills in the invocation id")
	assert.Equal(t, "formatted", out[0].Content.Text())
}

func TestCustomAgent_ErrorBecomesErrorEvent(t *testing.T) {
	custom := NewCustomAgent("Failing", func(ic *core.InvocationContext, emit func(core.Event)) error {
		return errors.New("step failed")
	})

	events, err := custom.Run(newAgentIC())
	require.NoError(t, err)

	out := drain(t, events)
	require.Len(t, out, 1)
	assert.Equal(t, core.ErrorCodeModelError, out[0].ErrorCode)
	assert.Contains(t, out[0].ErrorMessage, "step failed")
}

func TestCustomAgent_BeforeCallbackShortCircuits(t *testing.T) {
	executed := false
	custom := NewCustomAgent("Guarded",
		func(ic *core.InvocationContext, emit func(core.Event)) error {
			executed = true
			return nil
		},
		func(o *CustomAgentOptions) {
			o.BeforeCallbacks = []core.AgentCallback{
				func(cc *core.CallbackContext) (*core.Content, error) {
					return core.NewModelContent("intercepted"), nil
				},
			}
		},
	)

	events, err := custom.Run(newAgentIC())
	require.NoError(t, err)

	out := drain(t, events)
	require.Len(t, out, 1)
	assert.Equal(t, "intercepted", out[0].Content.Text())
	assert.False(t, executed, "the body must not run after a short-circuit")
}

func TestCustomAgent_AfterCallbackAppends(t *testing.T) {
	custom := NewCustomAgent("Wrapped",
		func(ic *core.InvocationContext, emit func(core.Event)) error {
			emit(core.Event{ID: core.NewID(), Content: core.NewModelContent("body")})
			return nil
		},
		func(o *CustomAgentOptions) {
			o.AfterCallbacks = []core.AgentCallback{
				func(cc *core.CallbackContext) (*core.Content, error) {
					return core.NewModelContent("closing note"), nil
				},
			}
		},
	)

	events, err := custom.Run(newAgentIC())
	require.NoError(t, err)

	out := drain(t, events)
	require.Len(t, out, 2)
	assert.Equal(t, "body", out[0].Content.Text())
	assert.Equal(t, "closing note", out[1].Content.Text())
}

func TestCustomAgent_CallbackStateRidesOnEvent(t *testing.T) {
	custom := NewCustomAgent("Stateful",
		func(ic *core.InvocationContext, emit func(core.Event)) error { return nil },
		func(o *CustomAgentOptions) {
			o.BeforeCallbacks = []core.AgentCallback{
				func(cc *core.CallbackContext) (*core.Content, error) {
					cc.SetState("prepared", true)
					return nil, nil
				},
			}
		},
	)

	events, err := custom.Run(newAgentIC())
	require.NoError(t, err)

	out := drain(t, events)
	require.Len(t, out, 1)
	assert.Equal(t, true, out[0].Actions.StateDelta["prepared"])
}
