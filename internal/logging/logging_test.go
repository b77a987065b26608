package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewHonorsRequestedLevel(t *testing.T) {
	logger := New("warn")
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewFallsBackToInfoForUnknownLevel(t *testing.T) {
	logger := New("not-a-level")
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestWithToolContextAttachesFields(t *testing.T) {
	logger := New("debug")
	scoped := WithToolContext(logger, "req-1", "read")
	require.NotNil(t, scoped)
}
