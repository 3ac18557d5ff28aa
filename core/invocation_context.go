package core

import (
	"context"
	"sync/atomic"

	"github.com/agentloop/agentloop/logging"
)

// InvocationContext carries everything an agent needs for one invocation:
// identity, the session snapshot, the service handles and the plugin chain.
// Derive scoped copies with WithAgent / WithBranch; the end-of-invocation
// signal is shared across all copies.
type InvocationContext struct {
	Context context.Context

	// Agent is the agent currently executing.
	Agent Agent

	AppName      string
	UserID       string
	Session      *Session
	InvocationID string

	// Branch disambiguates parallel execution paths, dot-joined from the
	// root ("parent.child").
	Branch string

	// UserContent is the message that started the invocation.
	UserContent *Content

	RunConfig RunConfig
	Plugins   *PluginChain

	SessionService  SessionService
	ArtifactService ArtifactService
	MemoryService   MemoryService

	Logger logging.Logger

	ended *atomic.Bool
}

// NewInvocationContext builds a root invocation context with a fresh
// end-of-invocation flag.
func NewInvocationContext(ctx context.Context) *InvocationContext {
	return &InvocationContext{
		Context: ctx,
		ended:   &atomic.Bool{},
	}
}

// WithAgent returns a copy scoped to the given agent. The end signal stays
// shared.
func (ic *InvocationContext) WithAgent(agent Agent) *InvocationContext {
	c := *ic
	c.Agent = agent
	return &c
}

// WithBranch returns a copy with the branch path extended by segment.
func (ic *InvocationContext) WithBranch(segment string) *InvocationContext {
	c := *ic
	if c.Branch == "" {
		c.Branch = segment
	} else {
		c.Branch = c.Branch + "." + segment
	}
	return &c
}

// EndInvocation signals that no further agent work should start. Visible
// through every derived copy.
func (ic *InvocationContext) EndInvocation() {
	if ic.ended != nil {
		ic.ended.Store(true)
	}
}

// Ended reports whether the invocation has been ended.
func (ic *InvocationContext) Ended() bool {
	return ic.ended != nil && ic.ended.Load()
}

// AgentName returns the current agent's name, or empty when unset.
func (ic *InvocationContext) AgentName() string {
	if ic.Agent == nil {
		return ""
	}
	return ic.Agent.Name()
}

// Log returns the context logger, never nil.
func (ic *InvocationContext) Log() logging.Logger {
	return logging.OrNoOp(ic.Logger)
}
