// Package test holds helpers shared by the package tests.
package test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rainbow-me/logcontext/common/logger"
)

// NewLogger returns a logger that only prints if a test fails
func NewLogger(t *testing.T) *logger.Logger {
	return logger.NewLogger(zaptest.NewLogger(t))
}

// NewObservedLogger returns a logger recording every entry at level or above, so tests can
// assert on messages and fields, e.g. the diagnostic context entries of a request log.
func NewObservedLogger(level zapcore.Level) (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logger.NewLogger(zap.New(core)), logs
}

// ContextMap returns the fields of entry as a map of strings, for the string fields only.
func ContextMap(entry observer.LoggedEntry) map[string]string {
	out := make(map[string]string, len(entry.Context))
	for _, f := range entry.Context {
		if f.Type == zapcore.StringType {
			out[f.Key] = f.String
		}
	}
	return out
}
