package core

import "fmt"

// Agent is a node in the orchestration tree. Run starts the agent's work for
// one invocation and returns a stream of events; the channel is closed when
// the agent finishes.
type Agent interface {
	// Name uniquely identifies the agent within its tree.
	Name() string

	// Description tells sibling agents and the model what this agent does.
	Description() string

	// SubAgents returns the direct children, in order.
	SubAgents() []Agent

	// Run executes the agent within the invocation and streams events.
	Run(ic *InvocationContext) (<-chan Event, error)
}

// AgentCallback runs before or after an agent executes. A non-nil returned
// content short-circuits (before) or replaces (after) the agent's output.
type AgentCallback func(cc *CallbackContext) (*Content, error)

// FindAgent locates the agent named name in the tree rooted at root using a
// depth-first search. Returns nil when absent.
func FindAgent(root Agent, name string) Agent {
	if root == nil {
		return nil
	}
	if root.Name() == name {
		return root
	}
	for _, sub := range root.SubAgents() {
		if found := FindAgent(sub, name); found != nil {
			return found
		}
	}
	return nil
}

// BuildParentMap indexes each agent's parent by child name. The root maps to
// nil.
func BuildParentMap(root Agent) map[string]Agent {
	parents := map[string]Agent{}
	if root == nil {
		return parents
	}
	parents[root.Name()] = nil
	var walk func(a Agent)
	walk = func(a Agent) {
		for _, sub := range a.SubAgents() {
			parents[sub.Name()] = a
			walk(sub)
		}
	}
	walk(root)
	return parents
}

// ValidateUniqueNames verifies that no two agents in the tree share a name.
func ValidateUniqueNames(root Agent) error {
	if root == nil {
		return nil
	}
	seen := map[string]bool{}
	var walk func(a Agent) error
	walk = func(a Agent) error {
		if seen[a.Name()] {
			return fmt.Errorf("%w: %q", ErrDuplicateAgentName, a.Name())
		}
		seen[a.Name()] = true
		for _, sub := range a.SubAgents() {
			if err := walk(sub); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
