// Package agentloop provides a high-level façade over the runner and the
// service abstractions (sessions, artifacts, memory & logging) enabling rapid
// construction of agent applications. Most programs interact with this package
// by:
//  1. Building an agent tree (LLM, sequential, parallel, loop, custom agents)
//  2. Creating an App via New() (optionally overriding default in-memory services)
//  3. Running invocations asynchronously (Run) or synchronously (RunSync)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply durable store
// implementations and a structured logger.
package agentloop

import (
	"context"

	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/runner"
)

// Options configures the App instance. It mirrors runner.Options so callers
// only need one import for the common path.
type Options = runner.Options

// App is the high-level façade aggregating the runner and its services.
type App struct {
	runner *runner.Runner
}

// New creates an App for the agent tree rooted at root. Any unset service is
// initialized with an in-memory implementation.
func New(appName string, root core.Agent, optFns ...func(o *Options)) (*App, error) {
	r, err := runner.New(appName, root, optFns...)
	if err != nil {
		return nil, err
	}
	return &App{runner: r}, nil
}

// Runner exposes the underlying runner for advanced use.
func (a *App) Runner() *runner.Runner { return a.runner }

// SessionService exposes the configured session service for session
// management around invocations.
func (a *App) SessionService() core.SessionService { return a.runner.SessionService() }

// Run starts an asynchronous invocation and returns the event stream. The
// session is created on first use.
func (a *App) Run(
	ctx context.Context,
	userID, sessionID string,
	content *core.Content,
	optFns ...func(o *runner.RunOptions),
) (<-chan core.Event, error) {
	return a.runner.Run(ctx, userID, sessionID, content, optFns...)
}

// RunSync is a synchronous helper that drains the event stream and returns
// all committed events. Context cancellation returns the events collected so
// far together with the context error.
func (a *App) RunSync(
	ctx context.Context,
	userID, sessionID string,
	content *core.Content,
	optFns ...func(o *runner.RunOptions),
) ([]core.Event, error) {
	eventsCh, err := a.runner.Run(ctx, userID, sessionID, content, optFns...)
	if err != nil {
		return nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			return events, ctx.Err()
		case ev, ok := <-eventsCh:
			if !ok {
				return events, nil
			}
			events = append(events, ev)
		}
	}
}
