package interceptors

import (
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"
)

const (
	DefaultInterceptorLogLevel      zapcore.Level = zapcore.InfoLevel
	DefaultInterceptorErrorLogLevel zapcore.Level = zapcore.WarnLevel
)

type LoggingInterceptorConfig struct {
	LogEnabled    bool
	LogLevel      zapcore.Level
	ErrorLogLevel zapcore.Level

	// GrpcCodeLogLevel overrides ErrorLogLevel per status code.
	GrpcCodeLogLevel map[codes.Code]zapcore.Level

	skipLoggingByMethod map[string]struct{}
}

type LoggingInterceptorOption func(*LoggingInterceptorConfig)

func LogEnabled(v bool) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.LogEnabled = v
	}
}

func LogLevel(level zapcore.Level) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.LogLevel = level
	}
}

func ErrorLogLevel(level zapcore.Level) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.ErrorLogLevel = level
	}
}

func GrpcCodeLogLevel(levels map[codes.Code]zapcore.Level) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		o.GrpcCodeLogLevel = levels
	}
}

// WithSkippedLogsByMethods silences the given full method names, e.g. health checks.
func WithSkippedLogsByMethods(methods ...string) LoggingInterceptorOption {
	return func(o *LoggingInterceptorConfig) {
		for _, m := range methods {
			o.skipLoggingByMethod[m] = struct{}{}
		}
	}
}

func interceptorConfig(opts ...LoggingInterceptorOption) *LoggingInterceptorConfig {
	cfg := &LoggingInterceptorConfig{
		LogEnabled:          true,
		LogLevel:            DefaultInterceptorLogLevel,
		ErrorLogLevel:       DefaultInterceptorErrorLogLevel,
		skipLoggingByMethod: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *LoggingInterceptorConfig) levelFor(code codes.Code) zapcore.Level {
	if code == codes.OK {
		return c.LogLevel
	}
	if level, ok := c.GrpcCodeLogLevel[code]; ok {
		return level
	}
	return c.ErrorLogLevel
}

func (c *LoggingInterceptorConfig) skip(method string) bool {
	if !c.LogEnabled {
		return true
	}
	_, ok := c.skipLoggingByMethod[method]
	return ok
}
