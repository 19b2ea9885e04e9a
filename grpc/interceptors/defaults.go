package interceptors

import (
	"time"

	grpctrace "github.com/DataDog/dd-trace-go/contrib/google.golang.org/grpc/v2"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"

	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/pkg/populator"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"
)

// Interceptor ids of the default chains, usable with InsertAfter, InsertBefore or Delete.
const (
	ServerDeadlineID = "server-deadline"
	TraceID          = "trace"
	RequestIDID      = "request-id"
	HeadersID        = "headers"
	ErrorsID         = "errors"
	PanicRecoveryID  = "panic-recovery"
	MDCID            = "mdc"
	LoggerID         = "logger"
	ContextStatusID  = "context-status"
)

// Config holds the options of the default chains.
type Config struct {
	RequestTimeout time.Duration
	Environment    string
	ServiceName    string

	TracingEnabled       bool
	PanicRecoveryEnabled bool

	// Populator enables the MDC interceptors when set.
	Populator *populator.Populator

	LoggingOptions []LoggingInterceptorOption
}

type ConfigOption func(*Config)

// WithRequestTimeout sets the server-side timeout of unary calls. Zero disables it.
func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

func WithPanicRecovery(enabled bool) ConfigOption {
	return func(c *Config) {
		c.PanicRecoveryEnabled = enabled
	}
}

func WithTracing(enabled bool) ConfigOption {
	return func(c *Config) {
		c.TracingEnabled = enabled
	}
}

// WithPopulator adds the MDC interceptors after panic recovery, so a recovered panic still finds
// the diagnostic context cleared.
func WithPopulator(p *populator.Populator) ConfigOption {
	return func(c *Config) {
		c.Populator = p
	}
}

func WithLoggingOptions(opts ...LoggingInterceptorOption) ConfigOption {
	return func(c *Config) {
		c.LoggingOptions = append(c.LoggingOptions, opts...)
	}
}

// NewConfig returns the defaults: 30s timeout, tracing and panic recovery enabled, health checks
// not logged and cancellations logged as warnings.
func NewConfig(serviceName, environment string, opts ...ConfigOption) *Config {
	cfg := &Config{
		RequestTimeout:       30 * time.Second,
		ServiceName:          serviceName,
		Environment:          environment,
		TracingEnabled:       true,
		PanicRecoveryEnabled: true,
		LoggingOptions: []LoggingInterceptorOption{
			LogEnabled(true),
			LogLevel(zapcore.InfoLevel),
			WithSkippedLogsByMethods(healthCheckMethod, healthWatchMethod),
			GrpcCodeLogLevel(map[codes.Code]zapcore.Level{ //nolint:exhaustive
				codes.Canceled: zapcore.WarnLevel,
			}),
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewDefaultServerUnaryChain builds, outermost first: server-deadline, trace, request-id,
// headers, errors, panic-recovery, mdc, logger, context-status.
func NewDefaultServerUnaryChain(
	serviceName,
	environment string,
	log *logger.Logger,
	opts ...ConfigOption,
) *UnaryServerInterceptorChain {
	cfg := NewConfig(serviceName, environment, opts...)
	chain := NewUnaryServerInterceptorChain()

	if cfg.RequestTimeout > 0 {
		chain.Push(ServerDeadlineID, ServerDeadlineInterceptor(cfg.RequestTimeout))
	}
	if cfg.TracingEnabled {
		chain.Push(TraceID, grpctrace.UnaryServerInterceptor(
			grpctrace.WithService(cfg.ServiceName),
			grpctrace.WithAnalytics(true),
			grpctrace.WithUntracedMethods(healthCheckMethod, healthWatchMethod),
		))
	}
	chain.Push(RequestIDID, RequestIDUnaryServerInterceptor())
	chain.Push(HeadersID, ResponseHeadersInterceptor())
	chain.Push(ErrorsID, UnaryErrorServerInterceptor)
	if cfg.PanicRecoveryEnabled {
		chain.Push(PanicRecoveryID, UnaryPanicRecoveryServerInterceptor(log))
	}
	if cfg.Populator != nil {
		chain.Push(MDCID, UnaryMDCServerInterceptor(cfg.Populator))
	}
	chain.Push(LoggerID, UnaryLoggerServerInterceptor(log, cfg.LoggingOptions...))
	chain.Push(ContextStatusID, UnaryContextStatusInterceptor())

	return chain
}

// NewDefaultServerStreamChain builds, outermost first: trace, request-id, errors, panic-recovery,
// mdc, logger.
func NewDefaultServerStreamChain(
	serviceName,
	environment string,
	log *logger.Logger,
	opts ...ConfigOption,
) *StreamServerInterceptorChain {
	cfg := NewConfig(serviceName, environment, opts...)
	chain := NewStreamServerInterceptorChain()

	if cfg.TracingEnabled {
		chain.Push(TraceID, grpctrace.StreamServerInterceptor(
			grpctrace.WithService(cfg.ServiceName),
			grpctrace.WithUntracedMethods(healthCheckMethod, healthWatchMethod),
		))
	}
	chain.Push(RequestIDID, RequestIDStreamServerInterceptor())
	chain.Push(ErrorsID, StreamErrorServerInterceptor)
	if cfg.PanicRecoveryEnabled {
		chain.Push(PanicRecoveryID, StreamPanicRecoveryServerInterceptor(log))
	}
	if cfg.Populator != nil {
		chain.Push(MDCID, StreamMDCServerInterceptor(cfg.Populator))
	}
	chain.Push(LoggerID, StreamLoggerServerInterceptor(log, cfg.LoggingOptions...))

	return chain
}

// NewDefaultClientUnaryChain traces outgoing calls and forwards the request id.
func NewDefaultClientUnaryChain(serviceName string, tracing bool) *UnaryClientInterceptorChain {
	chain := NewUnaryClientInterceptorChain()
	if tracing {
		chain.Push(TraceID, grpctrace.UnaryClientInterceptor(
			grpctrace.WithService(serviceName),
			grpctrace.WithAnalytics(true),
		))
	}
	// after trace so that a current span is active
	chain.Push(RequestIDID, UnaryRequestIDClientInterceptor)
	return chain
}
