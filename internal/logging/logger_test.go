package logging

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	ctx := ContextWithLogger(context.Background(), logger)
	FromContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].Message)
	assert.Same(t, zap.L(), FromContext(context.Background()))
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gatepay.log")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_LEVEL", "debug")

	logger, err := NewLogger("gatepay", "test")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	assert.FileExists(t, path)

	t.Setenv("LOG_LEVEL", "loud")
	_, err = NewLogger("gatepay", "test")
	assert.Error(t, err)
}
