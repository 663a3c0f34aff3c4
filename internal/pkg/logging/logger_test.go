package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_DuplicatesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cart.log")

	logger, err := NewLogger(Options{Service: "minishop-cart", Env: "test", Level: "debug", File: path})
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.FileExists(t, path)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(Options{Service: "minishop-cart", Level: "loud"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestNewLogger_LevelFiltersDebug(t *testing.T) {
	logger, err := NewLogger(Options{Service: "minishop-cart", Level: "warn"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
