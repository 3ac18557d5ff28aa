package core

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set, which
// guarantees at most one payload kind per part.
type Part interface{ isPart() }

// TextPart is a plain text content segment. Thought marks model reasoning
// text that should not be treated as user-visible output.
type TextPart struct {
	Text    string
	Thought bool
}

func (TextPart) isPart() {}

// FunctionCall describes a tool/function invocation request emitted by a
// model. ID correlates the call with its later FunctionResponse and must be
// preserved round-trip.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call. Response is an
// arbitrary JSON-like map; failed executions carry {"error": message}.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

func (FunctionResponsePart) isPart() {}

// BlobPart is an inline binary segment (image, file, ...).
type BlobPart struct {
	Data     []byte
	MIMEType string
}

func (BlobPart) isPart() {}

// Content holds a conversation role plus ordered heterogeneous parts.
// Role is one of RoleUser or RoleModel; system instructions travel on
// LlmRequest, not as content.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Conversation roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// NewUserContent builds a single-part user text content.
func NewUserContent(text string) *Content {
	return &Content{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewModelContent builds a single-part model text content.
func NewModelContent(text string) *Content {
	return &Content{Role: RoleModel, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all non-thought text parts.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok && !tp.Thought {
			out += tp.Text
		}
	}
	return out
}

// FunctionCalls returns the function call parts preserving order.
func (c *Content) FunctionCalls() []FunctionCall {
	if c == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns the function response parts preserving order.
func (c *Content) FunctionResponses() []FunctionResponse {
	if c == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range c.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// Clone returns a copy with a fresh parts slice. Part values are immutable by
// convention so a shallow part copy suffices.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	parts := make([]Part, len(c.Parts))
	copy(parts, c.Parts)
	return &Content{Role: c.Role, Parts: parts}
}
