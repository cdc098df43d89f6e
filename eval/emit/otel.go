package emit

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as a
// zero-duration OpenTelemetry span, named by event Kind, tagged with
// the key's Location and Tag as span attributes.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an Emitter that turns events into spans on
// the given tracer, e.g. otel.Tracer("depeval").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(ctx context.Context, e Event) error {
	_, span := o.tracer.Start(ctx, e.Kind.String())
	defer span.End()
	o.annotate(span, e)
	return nil
}

func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		_, span := o.tracer.Start(ctx, e.Kind.String())
		o.annotate(span, e)
		span.End()
	}
	return nil
}

func (o *OTelEmitter) annotate(span trace.Span, e Event) {
	span.SetAttributes(
		attribute.String("depeval.key", e.Location),
		attribute.String("depeval.tag", e.Tag),
	)
	if e.Kind == KindErrored {
		span.SetStatus(codes.Error, e.Message())
	}
	if msg := e.Message(); msg != "" {
		span.SetAttributes(attribute.String("depeval.message", msg))
	}
}

// Flush forces export of spans buffered by the active tracer provider,
// if it supports ForceFlush (the SDK provider does; the no-op default
// provider does not).
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}
