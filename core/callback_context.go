package core

// CallbackContext is handed to agent/model callbacks and plugins. It wraps the
// invocation context with a private actions buffer; state written here rides
// on the event the surrounding step emits and is only committed through the
// session service.
type CallbackContext struct {
	Invocation *InvocationContext

	actions EventActions
}

// NewCallbackContext wraps an invocation context with a fresh actions buffer.
func NewCallbackContext(ic *InvocationContext) *CallbackContext {
	return &CallbackContext{Invocation: ic}
}

// AgentName returns the executing agent's name.
func (cc *CallbackContext) AgentName() string { return cc.Invocation.AgentName() }

// InvocationID returns the current invocation id.
func (cc *CallbackContext) InvocationID() string { return cc.Invocation.InvocationID }

// UserContent returns the content that started the invocation.
func (cc *CallbackContext) UserContent() *Content { return cc.Invocation.UserContent }

// GetState reads a state key, checking pending writes in this context before
// the session snapshot.
func (cc *CallbackContext) GetState(key string) (any, bool) {
	if v, ok := cc.actions.StateDelta[key]; ok {
		return v, true
	}
	if sess := cc.Invocation.Session; sess != nil {
		v, ok := sess.State[key]
		return v, ok
	}
	return nil, false
}

// SetState buffers a state write into the pending delta.
func (cc *CallbackContext) SetState(key string, value any) {
	if cc.actions.StateDelta == nil {
		cc.actions.StateDelta = map[string]any{}
	}
	cc.actions.StateDelta[key] = value
}

// Actions returns the buffered actions accumulated so far.
func (cc *CallbackContext) Actions() EventActions { return cc.actions.Clone() }

// SearchMemory queries the configured memory service.
func (cc *CallbackContext) SearchMemory(query string) ([]MemoryEntry, error) {
	ic := cc.Invocation
	if ic.MemoryService == nil {
		return nil, nil
	}
	return ic.MemoryService.Search(ic.Context, ic.AppName, ic.UserID, query)
}
