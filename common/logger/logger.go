package logger

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rainbow-me/logcontext/common/env"
)

const (
	StringJSONEncoderName = "string_json"
	MessageKey            = "message"
)

// Logger is the zap logger used across the module. The embedded *zap.Logger exposes
// Debug/Info/Warn/Error directly.
type Logger struct {
	*zap.Logger
}

var (
	instance     *Logger
	instanceOnce sync.Once
	registerOnce sync.Once
	registerErr  error
)

// NewLogger wraps an existing zap logger. A nil logger yields a no-op logger.
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{Logger: l}
}

// Instance returns the process logger, initializing it from the environment on first use.
// When the environment is not configured it falls back to a development logger.
func Instance() *Logger {
	instanceOnce.Do(func() {
		l, err := InitLogger()
		if err != nil {
			l, _ = zap.NewDevelopment()
		}
		instance = NewLogger(l)
	})
	return instance
}

// With returns a child logger with the given fields appended.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil {
		return NewLogger(nil).With(fields...)
	}
	if len(fields) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Log writes a message at the given level.
func (l *Logger) Log(level Level, msg string, fields ...Field) {
	if l == nil {
		return
	}
	if ce := l.Check(zapcore.Level(level), msg); ce != nil {
		ce.Write(fields...)
	}
}

type stringJSONEncoder struct {
	zapcore.Encoder
}

func newStringJSONEncoder(cfg zapcore.EncoderConfig) *stringJSONEncoder {
	return &stringJSONEncoder{zapcore.NewJSONEncoder(cfg)}
}

// NewStringJSONEncoder returns an encoder that encodes the JSON log dict as a string
// so the log processing pipeline can correctly process logs with nested JSON.
func NewStringJSONEncoder(cfg zapcore.EncoderConfig) (zapcore.Encoder, error) {
	return newStringJSONEncoder(cfg), nil
}

// InitLogger initializes and returns a configured Zap logger with environment-specific settings.
func InitLogger(zapOpts ...zap.Option) (*zap.Logger, error) {
	var (
		config  zap.Config
		options []zap.Option
	)

	currentEnv := os.Getenv(env.ApplicationEnvKey)
	if err := env.IsEnvironmentValid(currentEnv); err != nil {
		return nil, errors.Wrap(err, "invalid environment")
	}

	// zap keeps a process-wide encoder registry, registering twice is an error
	registerOnce.Do(func() {
		registerErr = zap.RegisterEncoder(StringJSONEncoderName, NewStringJSONEncoder)
	})
	if registerErr != nil {
		return nil, errors.Wrap(registerErr, "failed to register string JSON encoder")
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "timestamp",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		FunctionKey:   zapcore.OmitKey,
		MessageKey:    MessageKey,
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	switch currentEnv {
	case string(env.EnvironmentLocal):
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.MessageKey = MessageKey
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		options = append(options, zap.AddStacktrace(zap.ErrorLevel))

	case string(env.EnvironmentLocalDocker), string(env.EnvironmentDevelopment), string(env.EnvironmentStaging):
		// JSON logs for Datadog ingestion
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig = encoderConfig
		config.Encoding = StringJSONEncoderName
		options = append(options, zap.AddStacktrace(zap.ErrorLevel))

	case string(env.EnvironmentProduction):
		config = zap.NewProductionConfig()
		config.EncoderConfig = encoderConfig
		config.Encoding = StringJSONEncoderName
		config.Level.SetLevel(zap.InfoLevel)
		options = append(options, zap.AddStacktrace(zap.ErrorLevel))
	}

	options = append(options, zapOpts...)

	logger, err := config.Build(options...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}

	return logger, nil
}
