package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultName = "minishop-cart"

type tracer struct{ t trace.Tracer }

// New returns a tracer bound to the global provider; install one with telemetry.Setup first.
func New(name string) observability.Tracer {
	return NewWithProvider(otel.GetTracerProvider(), name)
}

// NewWithProvider binds the tracer to tp instead of the global provider.
func NewWithProvider(tp trace.TracerProvider, name string) observability.Tracer {
	if name == "" {
		name = defaultName
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &tracer{t: tp.Tracer(name)}
}

// Start opens an internal span; use cases and store calls never cross a process boundary.
func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}
