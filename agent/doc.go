// Package agent provides the built-in agent implementations layered on the
// core contracts:
//
//   - LlmAgent: model-backed conversational agent with tools, toolsets,
//     instruction templates and transfer support
//   - SequentialAgent: runs children one after another, stopping on escalation
//   - ParallelAgent: runs children concurrently on separate branches
//   - LoopAgent: repeats a child with iteration, interval and predicate limits
//   - CustomAgent: wraps an arbitrary function as an agent
//
// All agents embed BaseAgent for identity and hierarchy management and stream
// their output as events over a channel.
package agent
