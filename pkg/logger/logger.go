// Package logger wraps zap with the fields the admin API logs on every line.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap logger scoped to a component.
type Logger struct {
	*zap.Logger
}

// New builds the process logger. format is "json" (default) or "console".
func New(level, format string) (*Logger, error) {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	encoding := "json"
	if strings.EqualFold(format, "console") {
		encoding = "console"
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Encoding:         encoding,
		EncoderConfig:    enc,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	zl, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: zl}, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With adds fields to every entry of the child logger.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named scopes the child logger to a component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger.Named(component)}
}

// WithRequest tags entries with the request's correlation id and the
// authenticated staff member, when there is one.
func (l *Logger) WithRequest(correlationID, staffID string) *Logger {
	fields := []zap.Field{zap.String("correlation_id", correlationID)}
	if staffID != "" {
		fields = append(fields, zap.String("staff_id", staffID))
	}
	return l.With(fields...)
}

// SetGlobal installs l as zap's package-level logger so library code using
// zap.L() ends up in the same sink.
func SetGlobal(l *Logger) {
	zap.ReplaceGlobals(l.Logger)
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
