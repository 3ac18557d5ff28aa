// Package core defines the shared contracts of the runtime: content parts and
// events, scoped session state, the agent/tool/plugin interfaces and the
// execution contexts threaded through an invocation. Implementation packages
// (session, artifact, memory, model, flow, agent, runner) all depend on core;
// core depends on none of them.
package core
