package log

import (
	"context"
	"os"

	"go.uber.org/zap"
)

type ctxKey string

const (
	sessionIDKey ctxKey = "session_id"
	requestIDKey ctxKey = "request_id"
)

var logger *zap.Logger

func init() {
	Configure(os.Getenv("DEBUG") == "true")
}

// Configure rebuilds the package logger once configuration is loaded.
func Configure(debug bool) {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
}

// WithSessionID returns a context whose logger carries the session id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithRequestID returns a context whose logger carries the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	if v, ok := ctx.Value(requestIDKey).(string); ok {
		fields = append(fields, zap.String("request_id", v))
	}
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		fields = append(fields, zap.String("session_id", v))
	}

	return logger.With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	_ = logger.Sync()
}
