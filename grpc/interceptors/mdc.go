package interceptors

import (
	"context"

	"github.com/cockroachdb/errors"
	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/logcontext/common/logger"
	grpcmeta "github.com/rainbow-me/logcontext/grpc/metadata"
	"github.com/rainbow-me/logcontext/pkg/populator"
)

// UnaryMDCServerInterceptor populates the diagnostic context of every unary call before the
// handler runs and clears it once the handler returns. Handler errors are returned unchanged.
func UnaryMDCServerInterceptor(p *populator.Populator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		var (
			resp   any
			called bool
		)
		view := grpcmeta.RequestFromContext(ctx, info.FullMethod, p.RequestOptions())
		err := p.Handle(ctx, view, func(ctx context.Context) error {
			called = true
			var handlerErr error
			resp, handlerErr = handler(ctx, req)
			return handlerErr
		})
		if err != nil && !called {
			return nil, populatorStatus(ctx, info.FullMethod, err)
		}
		return resp, err
	}
}

// StreamMDCServerInterceptor is the streaming counterpart of UnaryMDCServerInterceptor. The
// handler sees a stream whose Context carries the diagnostic context.
func StreamMDCServerInterceptor(p *populator.Populator) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		var called bool
		ctx := ss.Context()
		view := grpcmeta.RequestFromContext(ctx, info.FullMethod, p.RequestOptions())
		err := p.Handle(ctx, view, func(ctx context.Context) error {
			called = true
			wrapped := grpcmiddleware.WrapServerStream(ss)
			wrapped.WrappedContext = ctx
			return handler(srv, wrapped)
		})
		if err != nil && !called {
			return populatorStatus(ctx, info.FullMethod, err)
		}
		return err
	}
}

// populatorStatus maps a failure of the populator itself to a gRPC status.
func populatorStatus(ctx context.Context, method string, err error) error {
	logger.FromContext(ctx).Error("Failed to populate the diagnostic context",
		logger.String("method", method), logger.Error(err))

	if errors.Is(err, populator.ErrUnsupportedRequest) {
		return status.Error(codes.Internal, "Internal server error occurred")
	}
	return status.Error(codes.Unavailable, "identity could not be resolved")
}
