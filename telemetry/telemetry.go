// Package telemetry provides lightweight execution tracing for the runtime.
// Spans are created through the global OpenTelemetry tracer so any installed
// provider (OTLP, stdout, test recorder) picks them up; without a provider all
// calls are no-ops.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/agentloop/agentloop"

func tracer() trace.Tracer { return otel.Tracer(tracerName) }

// StartInvocationSpan opens the root span for one runner invocation.
func StartInvocationSpan(ctx context.Context, appName, invocationID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "invocation",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("app.name", appName),
			attribute.String("invocation.id", invocationID),
		),
	)
}

// StartAgentSpan opens a span for one agent execution.
func StartAgentSpan(ctx context.Context, agentName string) (context.Context, trace.Span) {
	return tracer().Start(ctx, fmt.Sprintf("agent.%s", agentName),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("agent.name", agentName)),
	)
}

// StartModelSpan opens a span for one model call.
func StartModelSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return tracer().Start(ctx, fmt.Sprintf("llm.%s", provider),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
		),
	)
}

// StartToolSpan opens a span for one tool execution.
func StartToolSpan(ctx context.Context, toolName, functionCallID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, fmt.Sprintf("tool.%s", toolName),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
			attribute.String("tool.call_id", functionCallID),
		),
	)
}

// RecordError records an error on the span and marks its status accordingly.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordUsage attaches token usage attributes to a model span.
func RecordUsage(span trace.Span, promptTokens, completionTokens, totalTokens int) {
	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", promptTokens),
		attribute.Int("llm.usage.completion_tokens", completionTokens),
		attribute.Int("llm.usage.total_tokens", totalTokens),
	)
}
