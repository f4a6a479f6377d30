package log

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"orders-gateway/internal/config"
)

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	logger, err := NewLogger(config.LoggingConfig{
		Level:       "debug",
		Encoding:    "json",
		OutputPaths: []string{path},
	})
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	logger.Info("ready")
	_ = logger.Sync()
	assert.FileExists(t, path)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "verbose"})
	assert.Error(t, err)
}
