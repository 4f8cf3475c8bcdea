package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Recorder observes remote agent calls.
type Recorder interface {
	// StartCall opens the call span. The returned context carries it.
	StartCall(ctx context.Context, agent, requestID string) context.Context
	RecordEvent(ctx context.Context, agent, kind string)
	RecordChunk(ctx context.Context, agent string)
	RecordInterrupt(ctx context.Context, agent, taskID, outcome string)
	// EndCall closes the span opened by StartCall on ctx.
	EndCall(ctx context.Context, agent string, duration time.Duration, err error)
}

// Noop returns a Recorder that records nothing.
func Noop() Recorder { return noopRecorder{} }

type noopRecorder struct{}

func (noopRecorder) StartCall(ctx context.Context, _, _ string) context.Context { return ctx }
func (noopRecorder) RecordEvent(context.Context, string, string)                {}
func (noopRecorder) RecordChunk(context.Context, string)                        {}
func (noopRecorder) RecordInterrupt(context.Context, string, string, string)    {}
func (noopRecorder) EndCall(context.Context, string, time.Duration, error)      {}

type otelRecorder struct {
	tracer trace.Tracer
	in     *instruments
}

func (r *otelRecorder) StartCall(ctx context.Context, agent, requestID string) context.Context {
	ctx, _ = r.tracer.Start(ctx, SpanRemoteCall,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrAgentName, agent),
			attribute.String(AttrRequestID, requestID),
		),
	)
	return ctx
}

func (r *otelRecorder) RecordEvent(ctx context.Context, agent, kind string) {
	trace.SpanFromContext(ctx).AddEvent(EventRemote, trace.WithAttributes(attribute.String(AttrEventKind, kind)))
	r.in.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("kind", kind),
	))
}

func (r *otelRecorder) RecordChunk(ctx context.Context, agent string) {
	trace.SpanFromContext(ctx).AddEvent(EventChunk)
	r.in.chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agent)))
}

func (r *otelRecorder) RecordInterrupt(ctx context.Context, agent, taskID, outcome string) {
	trace.SpanFromContext(ctx).AddEvent(EventInterrupt, trace.WithAttributes(
		attribute.String(AttrTaskID, taskID),
		attribute.String(AttrOutcome, outcome),
	))
	r.in.interrupts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("outcome", outcome),
	))
}

func (r *otelRecorder) EndCall(ctx context.Context, agent string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("agent", agent))
	r.in.calls.Add(ctx, 1, attrs)
	r.in.duration.Record(ctx, duration.Seconds(), attrs)

	span := trace.SpanFromContext(ctx)
	if err != nil {
		r.in.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
