package interceptors

import (
	"context"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rainbow-me/logcontext/common/headers"
	"github.com/rainbow-me/logcontext/common/mdc"
	grpcmeta "github.com/rainbow-me/logcontext/grpc/metadata"
	"github.com/rainbow-me/logcontext/observability"
)

const requestIDTag = "request_id"

// RequestIDUnaryServerInterceptor makes sure every call carries an x-request-id in its incoming
// metadata, generating one when the client sent none, and tags the active span with it. Placed
// before the MDC interceptor the id ends up in the diagnostic context like any other header.
func RequestIDUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		return handler(withRequestID(ctx), req)
	}
}

// RequestIDStreamServerInterceptor is the streaming counterpart of RequestIDUnaryServerInterceptor.
func RequestIDStreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		_ *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		wrapped := grpcmiddleware.WrapServerStream(ss)
		wrapped.WrappedContext = withRequestID(ss.Context())
		return handler(srv, wrapped)
	}
}

func withRequestID(ctx context.Context) context.Context {
	ctx, id := grpcmeta.EnsureRequestID(ctx)
	observability.SetTag(ctx, requestIDTag, id)
	return ctx
}

// UnaryRequestIDClientInterceptor forwards the request id of the current diagnostic context, or
// of the incoming metadata, to the outgoing call.
func UnaryRequestIDClientInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if id := requestIDOf(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, headers.HeaderXRequestID, id)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func requestIDOf(ctx context.Context) string {
	if mc, ok := mdc.FromContext(ctx); ok {
		for _, key := range []string{"X-Request-Id", headers.HeaderXRequestID} {
			if id, ok := mc.Get(key); ok {
				return id
			}
		}
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(headers.HeaderXRequestID); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
