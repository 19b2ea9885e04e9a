package logger

import (
	"context"
)

type loggerKey struct{}

// FromContext extracts a logger from the context or returns the process logger if none found
func FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return Instance()
	}
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok && logger != nil {
		return logger
	}
	return Instance()
}

// ContextWithLogger returns a context with the logger stored for later retrieval via FromContext
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// ContextWithFields returns a context with a logger to which the fields are appended
func ContextWithFields(ctx context.Context, fields ...Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return ContextWithLogger(ctx, FromContext(ctx).With(fields...))
}

// HasLogger reports whether ctx carries a logger set with ContextWithLogger or ContextWithFields
func HasLogger(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	l, ok := ctx.Value(loggerKey{}).(*Logger)
	return ok && l != nil
}
