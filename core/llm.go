package core

// FunctionDeclaration declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (minimal subset: type, properties,
// required).
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// LlmRequest captures the normalized model input produced by the flow:
// resolved system instruction, accumulated conversation contents and tool
// declarations for the composed catalog.
type LlmRequest struct {
	SystemInstruction string                `json:"system_instruction,omitempty"`
	Contents          []*Content            `json:"contents"`
	Tools             []FunctionDeclaration `json:"tools,omitempty"`
}

// AppendTools adds declarations, skipping names already declared.
func (r *LlmRequest) AppendTools(decls ...FunctionDeclaration) {
	seen := make(map[string]bool, len(r.Tools))
	for _, d := range r.Tools {
		seen[d.Name] = true
	}
	for _, d := range decls {
		if !seen[d.Name] {
			r.Tools = append(r.Tools, d)
			seen[d.Name] = true
		}
	}
}

// UsageMetadata captures token usage statistics for a model response.
type UsageMetadata struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LlmResponse is the normalized output of one model call. Partial responses
// are streaming placeholders and never terminate a flow.
type LlmResponse struct {
	Content       *Content       `json:"content,omitempty"`
	Partial       bool           `json:"partial,omitempty"`
	TurnComplete  bool           `json:"turn_complete,omitempty"`
	FinishReason  string         `json:"finish_reason,omitempty"`
	UsageMetadata *UsageMetadata `json:"usage_metadata,omitempty"`
}
