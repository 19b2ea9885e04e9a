package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/common/mdc"
)

const (
	durationKey = "duration"
	methodKey   = "method"
	statusKey   = "status"
)

// UnaryLoggerServerInterceptor logs one line per call with its method, status and duration.
// Behind the MDC interceptor the line carries every diagnostic context entry. When log is nil the
// context logger is used.
func UnaryLoggerServerInterceptor(log *logger.Logger, opts ...LoggingInterceptorOption) grpc.UnaryServerInterceptor {
	cfg := interceptorConfig(opts...)
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if cfg.skip(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, log, cfg, "server.request", info.FullMethod, start, err)
		return resp, err
	}
}

// StreamLoggerServerInterceptor logs one line per stream once it ends.
func StreamLoggerServerInterceptor(log *logger.Logger, opts ...LoggingInterceptorOption) grpc.StreamServerInterceptor {
	cfg := interceptorConfig(opts...)
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if cfg.skip(info.FullMethod) {
			return handler(srv, ss)
		}
		start := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), log, cfg, "server.stream", info.FullMethod, start, err)
		return err
	}
}

func logCall(
	ctx context.Context,
	fallback *logger.Logger,
	cfg *LoggingInterceptorConfig,
	at, method string,
	start time.Time,
	err error,
) {
	log := contextLogger(ctx, fallback)
	code := status.Code(err)
	fields := []logger.Field{
		logger.String(methodKey, method),
		logger.String(statusKey, code.String()),
		logger.Duration(durationKey, time.Since(start)),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if ce := log.Check(cfg.levelFor(code), at); ce != nil {
		ce.Write(fields...)
	}
}

// contextLogger returns log enriched with the diagnostic context of ctx, or the context logger,
// which already carries it, when log is nil.
func contextLogger(ctx context.Context, log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.FromContext(ctx)
	}
	return log.With(mdc.ToLogFields(ctx)...)
}
