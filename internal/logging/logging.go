// Package logging builds the server's single zap logger, always to
// stderr, never to stdout — stdout carries only JSON-RPC protocol bytes
// (spec.md §4.1).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON-encoded *zap.Logger writing to stderr at level.
// Recognized levels: debug, info, warn, error. An unrecognized level
// falls back to info rather than failing startup over a typo.
func New(level string) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		zapLevel,
	)

	return zap.New(core, zap.AddCaller())
}

// WithToolContext returns a child logger scoped to one in-flight tool
// call, matching the teacher's per-request field-scoping pattern.
func WithToolContext(logger *zap.Logger, requestID, toolName string) *zap.Logger {
	return logger.With(zap.String("request_id", requestID), zap.String("tool", toolName))
}
