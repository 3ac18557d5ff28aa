package flow

import (
	"fmt"
	"strings"

	"github.com/agentloop/agentloop/core"
	internalutil "github.com/agentloop/agentloop/internal/util"
)

// InstructionsProcessor resolves the agent's system instruction and applies
// template substitution against the merged session state.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets the system instruction on the request.
func (p *InstructionsProcessor) ProcessRequest(ic *core.InvocationContext, req *core.LlmRequest, agent LlmFlowAgent) error {
	cc := core.NewCallbackContext(ic)
	instruction, err := agent.ResolveInstruction(cc)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	ic.Log().Debug("flow.instruction.resolved", "agent", agent.Name(), "length", len(instruction))

	if ic.Session != nil && ic.Session.State != nil {
		rendered, err := internalutil.RenderTemplate(instruction, ic.Session.State)
		if err != nil {
			return fmt.Errorf("failed to render instruction template: %w", err)
		}
		instruction = rendered
	}

	if req.SystemInstruction == "" {
		req.SystemInstruction = instruction
	} else if instruction != "" {
		req.SystemInstruction += "\n\n" + instruction
	}
	return nil
}

// ContentsProcessor assembles the conversation history from committed session
// events plus the current user content.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest appends conversation contents to the request.
func (p *ContentsProcessor) ProcessRequest(ic *core.InvocationContext, req *core.LlmRequest, agent LlmFlowAgent) error {
	var contents []*core.Content

	if ic.Session != nil {
		events := ic.Session.Events
		if max := agent.MaxHistoryEvents(); max > 0 && len(events) > max {
			events = events[len(events)-max:]
		}
		for _, ev := range events {
			if ev.Partial || ev.Content == nil || len(ev.Content.Parts) == 0 {
				continue
			}
			contents = append(contents, ev.Content)
		}
	}

	// An invocation without committed history still carries its user turn.
	if len(contents) == 0 && ic.UserContent != nil {
		contents = append(contents, ic.UserContent)
	}

	req.Contents = append(req.Contents, contents...)
	return nil
}

// DeclarationsProcessor advertises the agent's callable tools to the model.
type DeclarationsProcessor struct{}

// NewDeclarationsProcessor creates a new declarations processor.
func NewDeclarationsProcessor() *DeclarationsProcessor { return &DeclarationsProcessor{} }

// Name returns the processor's identifier.
func (p *DeclarationsProcessor) Name() string { return "declarations" }

// ProcessRequest appends the tool declarations to the request.
func (p *DeclarationsProcessor) ProcessRequest(ic *core.InvocationContext, req *core.LlmRequest, agent LlmFlowAgent) error {
	for _, t := range agent.ResolveTools(ic) {
		if decl := t.Declaration(); decl != nil {
			req.AppendTools(*decl)
		}
	}
	return nil
}

// TransferProcessor describes the transferable agents in the system
// instruction when transfer is enabled. The transfer tool itself is part of
// the agent's resolved tool map.
type TransferProcessor struct{}

// NewTransferProcessor creates a new transfer processor.
func NewTransferProcessor() *TransferProcessor { return &TransferProcessor{} }

// Name returns the processor's identifier.
func (p *TransferProcessor) Name() string { return "transfer" }

// ProcessRequest appends the transfer guidance to the system instruction.
func (p *TransferProcessor) ProcessRequest(ic *core.InvocationContext, req *core.LlmRequest, agent LlmFlowAgent) error {
	if !agent.TransferEnabled() {
		return nil
	}
	subAgents := agent.SubAgents()
	if len(subAgents) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("You can transfer control to the following agents using the transfer_to_agent tool:\n")
	for _, sub := range subAgents {
		fmt.Fprintf(&b, "- %s: %s\n", sub.Name(), sub.Description())
	}

	if req.SystemInstruction == "" {
		req.SystemInstruction = b.String()
	} else {
		req.SystemInstruction += "\n\n" + b.String()
	}
	return nil
}
