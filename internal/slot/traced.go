package slot

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jordanhubbard/llmdash/internal/slot"

// Traced wraps s so each call records a span tagged with the backend name.
// With no TracerProvider installed the spans are no-ops.
func Traced(s Slot, backend string) Slot {
	return &traced{next: s, backend: backend, tracer: otel.Tracer(tracerName)}
}

type traced struct {
	next    Slot
	backend string
	tracer  trace.Tracer
}

func (t *traced) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "slot."+op, trace.WithAttributes(attribute.String("slot.backend", t.backend)))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *traced) Load(ctx context.Context) ([]byte, error) {
	ctx, span := t.start(ctx, "load")
	data, err := t.next.Load(ctx)
	span.SetAttributes(attribute.Int("slot.bytes", len(data)))
	finish(span, err)
	return data, err
}

func (t *traced) Save(ctx context.Context, data []byte) error {
	ctx, span := t.start(ctx, "save")
	span.SetAttributes(attribute.Int("slot.bytes", len(data)))
	err := t.next.Save(ctx, data)
	finish(span, err)
	return err
}

func (t *traced) Remove(ctx context.Context) error {
	ctx, span := t.start(ctx, "remove")
	err := t.next.Remove(ctx)
	finish(span, err)
	return err
}
