package core

// ToolContext is the per-call context passed to tool executions. Each call
// gets its own actions buffer; state reads fall through pending tool writes,
// then the surrounding callback context, then the session snapshot.
type ToolContext struct {
	Invocation *InvocationContext

	// Parent is the callback context of the surrounding flow step, if any.
	Parent *CallbackContext

	// FunctionCallID correlates this context with the model's call.
	FunctionCallID string

	actions EventActions
}

// NewToolContext builds a tool context for one function call.
func NewToolContext(ic *InvocationContext, parent *CallbackContext, functionCallID string) *ToolContext {
	return &ToolContext{Invocation: ic, Parent: parent, FunctionCallID: functionCallID}
}

// AgentName returns the executing agent's name.
func (tc *ToolContext) AgentName() string { return tc.Invocation.AgentName() }

// InvocationID returns the current invocation id.
func (tc *ToolContext) InvocationID() string { return tc.Invocation.InvocationID }

// GetState reads a state key with tool-local writes taking precedence over
// the callback buffer and the session snapshot.
func (tc *ToolContext) GetState(key string) (any, bool) {
	if v, ok := tc.actions.StateDelta[key]; ok {
		return v, true
	}
	if tc.Parent != nil {
		return tc.Parent.GetState(key)
	}
	if sess := tc.Invocation.Session; sess != nil {
		v, ok := sess.State[key]
		return v, ok
	}
	return nil, false
}

// SetState buffers a state write into this call's pending delta.
func (tc *ToolContext) SetState(key string, value any) {
	if tc.actions.StateDelta == nil {
		tc.actions.StateDelta = map[string]any{}
	}
	tc.actions.StateDelta[key] = value
}

// Actions returns the buffered actions accumulated by this call.
func (tc *ToolContext) Actions() EventActions { return tc.actions.Clone() }

// TransferToAgent requests handoff to the named agent once the current step
// commits.
func (tc *ToolContext) TransferToAgent(name string) { tc.actions.TransferToAgent = name }

// Escalate signals the enclosing loop or runner to stop after this step.
func (tc *ToolContext) Escalate() { tc.actions.Escalate = true }

// SkipSummarization marks the tool result as final, suppressing the follow-up
// model call.
func (tc *ToolContext) SkipSummarization() { tc.actions.SkipSummarization = true }

// RequestConfirmation records that this call awaits an out-of-band user
// confirmation.
func (tc *ToolContext) RequestConfirmation() {
	tc.actions.RequestedToolConfirmations = append(tc.actions.RequestedToolConfirmations, tc.FunctionCallID)
}

// SaveArtifact stores a new artifact version and records it in the actions'
// artifact delta.
func (tc *ToolContext) SaveArtifact(filename string, artifact Artifact) (int, error) {
	ic := tc.Invocation
	if ic.ArtifactService == nil {
		return 0, ErrArtifactNotFound
	}
	version, err := ic.ArtifactService.Save(ic.Context, ic.AppName, ic.UserID, tc.sessionID(), filename, artifact)
	if err != nil {
		return 0, err
	}
	if tc.actions.ArtifactDelta == nil {
		tc.actions.ArtifactDelta = map[string]int{}
	}
	tc.actions.ArtifactDelta[filename] = version
	return version, nil
}

// LoadArtifact fetches an artifact version, 0 meaning latest.
func (tc *ToolContext) LoadArtifact(filename string, version int) (Artifact, error) {
	ic := tc.Invocation
	if ic.ArtifactService == nil {
		return Artifact{}, ErrArtifactNotFound
	}
	return ic.ArtifactService.Load(ic.Context, ic.AppName, ic.UserID, tc.sessionID(), filename, version)
}

// ListArtifacts lists the filenames visible to this session.
func (tc *ToolContext) ListArtifacts() ([]string, error) {
	ic := tc.Invocation
	if ic.ArtifactService == nil {
		return nil, nil
	}
	return ic.ArtifactService.List(ic.Context, ic.AppName, ic.UserID, tc.sessionID())
}

// SearchMemory queries the configured memory service.
func (tc *ToolContext) SearchMemory(query string) ([]MemoryEntry, error) {
	ic := tc.Invocation
	if ic.MemoryService == nil {
		return nil, nil
	}
	return ic.MemoryService.Search(ic.Context, ic.AppName, ic.UserID, query)
}

func (tc *ToolContext) sessionID() string {
	if sess := tc.Invocation.Session; sess != nil {
		return sess.ID
	}
	return ""
}
