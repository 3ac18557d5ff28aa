// Package runner coordinates end-to-end invocations: it commits the user
// message, drives the agent tree, applies the plugin chain, persists every
// event before yielding it, and resolves transfer and escalation signals.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentloop/agentloop/artifact"
	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/logging"
	"github.com/agentloop/agentloop/memory"
	"github.com/agentloop/agentloop/session"
	"github.com/agentloop/agentloop/telemetry"
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for yielded events.
	EventBufferSize int
	// SessionService persists sessions; defaults to in-memory.
	SessionService core.SessionService
	// ArtifactService stores artifacts; defaults to in-memory.
	ArtifactService core.ArtifactService
	// MemoryService provides recall; defaults to in-memory.
	MemoryService core.MemoryService
	// Plugins are installed as the invocation plugin chain, in order.
	Plugins []*core.Plugin
	// Logger receives structured runtime logs; defaults to no-op.
	Logger logging.Logger
}

// RunOptions tune a single invocation.
type RunOptions struct {
	RunConfig core.RunConfig
}

// WithRunConfig overrides the per-invocation run configuration.
func WithRunConfig(cfg core.RunConfig) func(*RunOptions) {
	return func(o *RunOptions) { o.RunConfig = cfg }
}

// Runner drives invocations against a fixed agent tree for one app. Public
// methods are safe for concurrent use.
type Runner struct {
	appName string
	root    core.Agent

	eventBufferSize int

	sessionService  core.SessionService
	artifactService core.ArtifactService
	memoryService   core.MemoryService
	plugins         *core.PluginChain
	logger          logging.Logger
}

// New constructs a Runner for the agent tree rooted at root. Agent names must
// be unique within the tree and plugin names unique within the chain.
func New(appName string, root core.Agent, optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{
		EventBufferSize: 100,
		SessionService:  session.NewInMemoryService(),
		ArtifactService: artifact.NewInMemoryService(),
		MemoryService:   memory.NewInMemoryService(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := core.ValidateUniqueNames(root); err != nil {
		return nil, err
	}
	chain, err := core.NewPluginChain(opts.Plugins...)
	if err != nil {
		return nil, err
	}

	return &Runner{
		appName:         appName,
		root:            root,
		eventBufferSize: opts.EventBufferSize,
		sessionService:  opts.SessionService,
		artifactService: opts.ArtifactService,
		memoryService:   opts.MemoryService,
		plugins:         chain,
		logger:          opts.Logger,
	}, nil
}

// SessionService exposes the configured session service, for session
// management around invocations.
func (r *Runner) SessionService() core.SessionService { return r.sessionService }

// Run starts an invocation for the user message and returns the event
// stream. Every non-partial event is committed to the session before it is
// yielded, so a consumer never observes an event the session does not hold.
// The stream closes when the invocation finishes.
func (r *Runner) Run(
	ctx context.Context,
	userID, sessionID string,
	content *core.Content,
	optFns ...func(o *RunOptions),
) (<-chan core.Event, error) {
	runOpts := RunOptions{}
	for _, fn := range optFns {
		fn(&runOpts)
	}

	sess, err := r.sessionService.Get(ctx, r.appName, userID, sessionID)
	if errors.Is(err, core.ErrSessionNotFound) {
		sess, err = r.sessionService.Create(ctx, r.appName, userID, sessionID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	ic := core.NewInvocationContext(ctx)
	ic.AppName = r.appName
	ic.UserID = userID
	ic.Session = sess
	ic.InvocationID = core.NewID()
	ic.UserContent = content
	ic.RunConfig = runOpts.RunConfig
	ic.Plugins = r.plugins
	ic.SessionService = r.sessionService
	ic.ArtifactService = r.artifactService
	ic.MemoryService = r.memoryService
	ic.Logger = r.logger

	out := make(chan core.Event, r.eventBufferSize)
	go func() {
		defer close(out)
		r.runInvocation(ic, out)
	}()
	return out, nil
}

func (r *Runner) runInvocation(ic *core.InvocationContext, out chan<- core.Event) {
	logger := logging.OrNoOp(r.logger)

	ctx, span := telemetry.StartInvocationSpan(ic.Context, r.appName, ic.InvocationID)
	defer span.End()
	ic.Context = ctx

	content, err := r.plugins.RunOnUserMessage(ic, ic.UserContent)
	if err != nil {
		r.yieldError(ic, out, err)
		return
	}
	if content != nil {
		ic.UserContent = content
	}

	if ic.UserContent != nil {
		userEvent := core.NewUserEvent(ic.InvocationID, ic.UserContent)
		stored, err := r.sessionService.AppendEvent(ic.Context, ic.Session, userEvent)
		if err != nil {
			r.yieldError(ic, out, fmt.Errorf("failed to append user event: %w", err))
			return
		}
		select {
		case out <- stored:
		case <-ic.Context.Done():
			return
		}
	}

	canned, err := r.plugins.RunBeforeRun(ic)
	if err != nil {
		r.yieldError(ic, out, err)
		return
	}
	if canned != nil {
		ev := core.NewEvent(ic.InvocationID, r.root.Name())
		ev.Content = canned
		r.commitAndYield(ic, out, ev)
	} else {
		r.runAgents(ic, out)
	}

	if err := r.plugins.RunAfterRun(ic); err != nil {
		logger.Error("runner.after_run.failed", "invocation", ic.InvocationID, "error", err.Error())
	}
}

// runAgents drives the agent tree starting at the root, following transfer
// requests until an agent finishes without one or an escalation stops the
// invocation. Transfer targets are resolved against the whole tree from the
// root.
func (r *Runner) runAgents(ic *core.InvocationContext, out chan<- core.Event) {
	logger := logging.OrNoOp(r.logger)
	current := r.root

	for {
		events, err := current.Run(ic.WithAgent(current))
		if err != nil {
			r.yieldError(ic, out, fmt.Errorf("agent %s failed to start: %w", current.Name(), err))
			return
		}

		var transferTo string
		var escalated bool
		for ev := range events {
			if replaced, err := r.plugins.RunOnEvent(ic, ev); err != nil {
				r.yieldError(ic, out, err)
				return
			} else if replaced != nil {
				ev = *replaced
			}

			if ev.Actions.TransferToAgent != "" {
				transferTo = ev.Actions.TransferToAgent
			}
			if ev.Actions.Escalate {
				escalated = true
			}

			if !r.commitAndYield(ic, out, ev) {
				return
			}
		}

		if escalated || ic.Ended() {
			logger.Debug("runner.invocation.stopped", "invocation", ic.InvocationID, "escalated", escalated)
			return
		}
		if transferTo == "" {
			return
		}

		target := core.FindAgent(r.root, transferTo)
		if target == nil {
			logger.Warn("runner.transfer.target_missing", "invocation", ic.InvocationID, "target", transferTo)
			ev := core.NewErrorEvent(ic.InvocationID, current.Name(), core.ErrorCodeTransferTargetMissing,
				fmt.Sprintf("transfer target %q not found", transferTo))
			r.commitAndYield(ic, out, ev)
			return
		}

		logger.Info("runner.transfer", "invocation", ic.InvocationID, "from", current.Name(), "to", transferTo)
		current = target
	}
}

// commitAndYield persists a non-partial event then forwards it. Partial
// events are forwarded as-is. Returns false when the invocation should stop.
func (r *Runner) commitAndYield(ic *core.InvocationContext, out chan<- core.Event, ev core.Event) bool {
	if !ev.Partial {
		stored, err := r.sessionService.AppendEvent(ic.Context, ic.Session, ev)
		if err != nil {
			r.yieldError(ic, out, fmt.Errorf("failed to append event: %w", err))
			return false
		}
		ev = stored
	}

	select {
	case out <- ev:
		return true
	case <-ic.Context.Done():
		return false
	}
}

// yieldError converts an internal error into a committed error event.
func (r *Runner) yieldError(ic *core.InvocationContext, out chan<- core.Event, err error) {
	logging.OrNoOp(r.logger).Error("runner.invocation.error", "invocation", ic.InvocationID, "error", err.Error())
	ev := core.NewErrorEvent(ic.InvocationID, r.root.Name(), core.ErrorCodeModelError, err.Error())
	if stored, appendErr := r.sessionService.AppendEvent(ic.Context, ic.Session, ev); appendErr == nil {
		ev = stored
	}
	select {
	case out <- ev:
	case <-ic.Context.Done():
	}
}
