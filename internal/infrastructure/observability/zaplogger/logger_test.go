package zaplogger

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_FixedAndScopedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core), observability.F("service", "minishop-cart"))

	l.With(observability.F("use_case", "cart.add_item")).Info("use_case_done",
		observability.F("quantity", 3),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "use_case_done", entries[0].Message)
	assert.Equal(t, "minishop-cart", ctx["service"])
	assert.Equal(t, "cart.add_item", ctx["use_case"])
	assert.EqualValues(t, 3, ctx["quantity"])
}

func TestLogger_ErrorFieldsKeepMessage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("cart_save_failed", observability.F("error", errors.New("disk full")))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "disk full", logs.All()[0].ContextMap()["error"])
}

func TestLogger_LevelsRouteThrough(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.DebugLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 4, logs.Len())
}
