package interceptors

import (
	"context"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/ext"
	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const (
	grpcStatusCodeTag    = "rpc.grpc.status_code"
	grpcStatusMessageTag = "rpc.grpc.status_message"
)

// UnaryErrorServerInterceptor tags the active span with the error returned by the handler.
func UnaryErrorServerInterceptor(
	ctx context.Context,
	req any,
	_ *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	resp, err := handler(ctx, req)
	tagError(ctx, err)
	return resp, err
}

// StreamErrorServerInterceptor is the streaming counterpart of UnaryErrorServerInterceptor.
func StreamErrorServerInterceptor(
	srv any,
	ss grpc.ServerStream,
	_ *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	err := handler(srv, ss)
	tagError(ss.Context(), err)
	return err
}

// tagError marks the span as errored. Status errors carry their code and message, anything
// else is reported as a system error.
func tagError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span, ok := tracer.SpanFromContext(ctx)
	if !ok {
		return
	}

	span.SetTag(ext.Error, true)
	if s, isStatus := status.FromError(err); isStatus {
		span.SetTag(grpcStatusCodeTag, s.Code().String())
		span.SetTag(grpcStatusMessageTag, s.Message())
		return
	}
	span.SetTag(ext.ErrorType, "system")
	span.SetTag(ext.ErrorMsg, err.Error())
}
