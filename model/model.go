package model

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/agentloop/agentloop/core"
)

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by flows to drive generation.
// Implementations adapt a provider API to the normalized request/response
// shapes.
type Model interface {
	GenerateContent(ctx context.Context, req *core.LlmRequest) (*core.LlmResponse, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// Responses can be scripted in order or keyed by the last user text; the call
// counter lets tests assert how many generations actually ran.
type MockModel struct {
	info      Info
	responses map[string]*core.LlmResponse
	script    []*core.LlmResponse
	calls     atomic.Int64
}

var _ Model = (*MockModel)(nil)

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: make(map[string]*core.LlmResponse),
	}
}

// AddResponse registers a canned completion for an input text.
func (m *MockModel) AddResponse(prompt, response string) {
	m.responses[prompt] = &core.LlmResponse{
		Content:      core.NewModelContent(response),
		FinishReason: "stop",
	}
}

// Enqueue appends responses returned in order regardless of input. Scripted
// responses take precedence over keyed ones.
func (m *MockModel) Enqueue(responses ...*core.LlmResponse) {
	m.script = append(m.script, responses...)
}

// Calls reports how many generations have run.
func (m *MockModel) Calls() int { return int(m.calls.Load()) }

// GenerateContent implements Model.
func (m *MockModel) GenerateContent(ctx context.Context, req *core.LlmRequest) (*core.LlmResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := m.calls.Add(1)

	if len(m.script) > 0 {
		if int(n) <= len(m.script) {
			return m.script[n-1], nil
		}
		return m.script[len(m.script)-1], nil
	}

	var inputText string
	if len(req.Contents) > 0 {
		inputText = req.Contents[len(req.Contents)-1].Text()
	}
	if resp, ok := m.responses[inputText]; ok {
		return resp, nil
	}
	return &core.LlmResponse{
		Content:      core.NewModelContent(fmt.Sprintf("Mock response to: %s", inputText)),
		FinishReason: "stop",
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
