package core

import (
	"fmt"
	"strings"
)

// Plugin bundles optional hooks observing and steering the lifecycle of every
// invocation. Unset hooks are skipped. Value-returning hooks short-circuit:
// the first plugin in chain order to return a non-nil value wins and later
// plugins do not run for that hook.
type Plugin struct {
	// Name must be unique within a chain.
	Name string

	// OnUserMessage may replace the incoming user content before it is
	// committed to the session.
	OnUserMessage func(ic *InvocationContext, content *Content) (*Content, error)

	// BeforeRun may short-circuit the entire invocation with a canned
	// response.
	BeforeRun func(ic *InvocationContext) (*Content, error)

	// AfterRun observes invocation completion. It cannot alter the result.
	AfterRun func(ic *InvocationContext) error

	// OnEvent may replace any event before it is yielded to the caller.
	OnEvent func(ic *InvocationContext, event Event) (*Event, error)

	// BeforeAgent may short-circuit an agent with a canned response.
	BeforeAgent func(cc *CallbackContext) (*Content, error)

	// AfterAgent may append replacement content after an agent finishes.
	AfterAgent func(cc *CallbackContext) (*Content, error)

	// BeforeModel may short-circuit a model call with a cached response.
	BeforeModel func(cc *CallbackContext, req *LlmRequest) (*LlmResponse, error)

	// AfterModel may replace a model response.
	AfterModel func(cc *CallbackContext, resp *LlmResponse) (*LlmResponse, error)

	// OnModelError may recover a failed model call with a substitute
	// response. Returning (nil, nil) lets the error propagate.
	OnModelError func(cc *CallbackContext, req *LlmRequest, modelErr error) (*LlmResponse, error)

	// BeforeTool may short-circuit a tool call with a canned result.
	BeforeTool func(tc *ToolContext, tool Tool, args map[string]any) (map[string]any, error)

	// AfterTool may replace a tool result.
	AfterTool func(tc *ToolContext, tool Tool, args map[string]any, result map[string]any) (map[string]any, error)

	// OnToolError may recover a failed tool call with a substitute result.
	OnToolError func(tc *ToolContext, tool Tool, args map[string]any, toolErr error) (map[string]any, error)
}

// PluginChain runs a fixed ordered set of plugins. A nil chain is valid and
// all its Run methods are no-ops.
type PluginChain struct {
	plugins []*Plugin
}

// NewPluginChain validates plugin names and builds a chain. Duplicate names
// are rejected with ErrDuplicatePlugins naming the offenders.
func NewPluginChain(plugins ...*Plugin) (*PluginChain, error) {
	seen := map[string]bool{}
	var dups []string
	for _, p := range plugins {
		if seen[p.Name] {
			dups = append(dups, p.Name)
		}
		seen[p.Name] = true
	}
	if len(dups) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugins, strings.Join(dups, ", "))
	}
	return &PluginChain{plugins: plugins}, nil
}

// RunOnUserMessage gives each plugin a chance to replace the user content.
func (c *PluginChain) RunOnUserMessage(ic *InvocationContext, content *Content) (*Content, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.OnUserMessage == nil {
			continue
		}
		out, err := p.OnUserMessage(ic, content)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunBeforeRun returns the first short-circuit content, if any.
func (c *PluginChain) RunBeforeRun(ic *InvocationContext) (*Content, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.BeforeRun == nil {
			continue
		}
		out, err := p.BeforeRun(ic)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunAfterRun notifies all plugins that the invocation finished.
func (c *PluginChain) RunAfterRun(ic *InvocationContext) error {
	if c == nil {
		return nil
	}
	for _, p := range c.plugins {
		if p.AfterRun == nil {
			continue
		}
		if err := p.AfterRun(ic); err != nil {
			return err
		}
	}
	return nil
}

// RunOnEvent returns the first replacement event, if any.
func (c *PluginChain) RunOnEvent(ic *InvocationContext, event Event) (*Event, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.OnEvent == nil {
			continue
		}
		out, err := p.OnEvent(ic, event)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunBeforeAgent returns the first short-circuit content, if any.
func (c *PluginChain) RunBeforeAgent(cc *CallbackContext) (*Content, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.BeforeAgent == nil {
			continue
		}
		out, err := p.BeforeAgent(cc)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunAfterAgent returns the first replacement content, if any.
func (c *PluginChain) RunAfterAgent(cc *CallbackContext) (*Content, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.AfterAgent == nil {
			continue
		}
		out, err := p.AfterAgent(cc)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunBeforeModel returns the first short-circuit response, if any.
func (c *PluginChain) RunBeforeModel(cc *CallbackContext, req *LlmRequest) (*LlmResponse, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.BeforeModel == nil {
			continue
		}
		out, err := p.BeforeModel(cc, req)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunAfterModel returns the first replacement response, if any.
func (c *PluginChain) RunAfterModel(cc *CallbackContext, resp *LlmResponse) (*LlmResponse, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.AfterModel == nil {
			continue
		}
		out, err := p.AfterModel(cc, resp)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunOnModelError returns the first recovery response, if any.
func (c *PluginChain) RunOnModelError(cc *CallbackContext, req *LlmRequest, modelErr error) (*LlmResponse, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.OnModelError == nil {
			continue
		}
		out, err := p.OnModelError(cc, req, modelErr)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunBeforeTool returns the first short-circuit result, if any.
func (c *PluginChain) RunBeforeTool(tc *ToolContext, tool Tool, args map[string]any) (map[string]any, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.BeforeTool == nil {
			continue
		}
		out, err := p.BeforeTool(tc, tool, args)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunAfterTool returns the first replacement result, if any.
func (c *PluginChain) RunAfterTool(tc *ToolContext, tool Tool, args map[string]any, result map[string]any) (map[string]any, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.AfterTool == nil {
			continue
		}
		out, err := p.AfterTool(tc, tool, args, result)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

// RunOnToolError returns the first recovery result, if any.
func (c *PluginChain) RunOnToolError(tc *ToolContext, tool Tool, args map[string]any, toolErr error) (map[string]any, error) {
	if c == nil {
		return nil, nil
	}
	for _, p := range c.plugins {
		if p.OnToolError == nil {
			continue
		}
		out, err := p.OnToolError(tc, tool, args, toolErr)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}
