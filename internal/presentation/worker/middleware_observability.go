package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext injects an event-scoped logger for handler executions.
// Fields: event_id (generated if empty), trace_id/span_id when valid, plus
// caller-provided low-cardinality attributes such as "event".
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, len(attrs)+3)

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Subscriber wraps a bus so every handler it registers runs with an
// event-scoped logger in its context.
type Subscriber struct {
	next domoutbox.Subscriber
	base observability.Logger
}

func NewSubscriber(next domoutbox.Subscriber, base observability.Logger) *Subscriber {
	return &Subscriber{next: next, base: base}
}

func (s *Subscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
		sc := trace.SpanContextFromContext(ctx)
		ctx = WithEventContext(ctx, s.base, sc.TraceID(), sc.SpanID(), map[string]string{
			"event": e.EventName(),
		})
		return h(ctx, e)
	})
}
