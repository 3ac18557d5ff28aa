package tool

import "github.com/agentloop/agentloop/core"

// StaticToolset is a fixed named group of tools, handed out unchanged for
// every invocation.
type StaticToolset struct {
	name  string
	tools []core.Tool
}

var _ core.Toolset = (*StaticToolset)(nil)

// NewStaticToolset groups tools under a name.
func NewStaticToolset(name string, tools ...core.Tool) *StaticToolset {
	return &StaticToolset{name: name, tools: tools}
}

// Name returns the toolset identifier.
func (s *StaticToolset) Name() string { return s.name }

// Tools returns the fixed tool list.
func (s *StaticToolset) Tools(_ *core.InvocationContext) ([]core.Tool, error) {
	return s.tools, nil
}
