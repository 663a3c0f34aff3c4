package workerpresentation

import (
	"context"
	"testing"

	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (c *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	c.handlers[name] = h
}

func TestWithEventContext_AddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zaplogger.New(zap.New(core))

	traceID := trace.TraceID{1}
	ctx := WithEventContext(context.Background(), base, traceID, trace.SpanID{}, map[string]string{
		"event_id": "evt-1",
		"event":    "cart.item_added",
		"empty":    "",
	})
	logctx.From(ctx).Info("handled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "cart.item_added", fields["event"])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.NotContains(t, fields, "span_id")
	assert.NotContains(t, fields, "empty")
}

func TestSubscriber_WrapsHandlers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	inner := &captureSubscriber{handlers: map[string]domoutbox.Handler{}}
	sub := NewSubscriber(inner, zaplogger.New(zap.New(core)))

	sub.Subscribe("billing.bill_generated", func(ctx context.Context, e domoutbox.Event) error {
		logctx.From(ctx).Info("seen")
		return nil
	})

	h := inner.handlers["billing.bill_generated"]
	require.NotNil(t, h)
	require.NoError(t, h(context.Background(), namedEvent("billing.bill_generated")))

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "billing.bill_generated", fields["event"])
	assert.NotEmpty(t, fields["event_id"])
}
