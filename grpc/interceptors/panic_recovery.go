package interceptors

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/logcontext/common/env"
	"github.com/rainbow-me/logcontext/common/logger"
)

// UnaryPanicRecoveryServerInterceptor turns a handler panic into a codes.Internal status. The
// panic is logged with its stack and the active span is marked as errored. When log is nil the
// context logger is used.
func UnaryPanicRecoveryServerInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return grpcrecovery.UnaryServerInterceptor(
		grpcrecovery.WithRecoveryHandlerContext(recoverPanic(log)),
	)
}

// StreamPanicRecoveryServerInterceptor is the streaming counterpart of
// UnaryPanicRecoveryServerInterceptor.
func StreamPanicRecoveryServerInterceptor(log *logger.Logger) grpc.StreamServerInterceptor {
	return grpcrecovery.StreamServerInterceptor(
		grpcrecovery.WithRecoveryHandlerContext(recoverPanic(log)),
	)
}

func recoverPanic(fallback *logger.Logger) grpcrecovery.RecoveryHandlerFuncContext {
	return func(ctx context.Context, panicValue any) error {
		contextLogger(ctx, fallback).Error("Recovered from panic in gRPC handler", logger.WithPanic(panicValue)...)
		if env.IsLocalApplicationEnv() {
			// human-readable stack on the local console
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
		}

		if span, ok := tracer.SpanFromContext(ctx); ok {
			span.SetTag(ext.Error, true)
			span.SetTag(ext.ErrorType, "panic")
			span.SetTag(ext.ErrorMsg, codes.Internal.String())
		}

		// the panic value is not exposed to clients
		return status.Error(codes.Internal, "Internal server error occurred")
	}
}
