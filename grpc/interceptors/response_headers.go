package interceptors

import (
	"context"
	"strconv"

	"github.com/DataDog/dd-trace-go/v2/ddtrace/tracer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rainbow-me/logcontext/common/headers"
)

// ResponseHeadersInterceptor echoes the request id and the Datadog trace and span ids in the
// response headers, so a client can quote them when reporting a failed call.
func ResponseHeadersInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		md := responseHeaders(ctx)
		resp, err := handler(ctx, req)
		if md.Len() > 0 {
			// fails only when headers were already sent by the handler
			_ = grpc.SendHeader(ctx, md)
		}
		return resp, err
	}
}

func responseHeaders(ctx context.Context) metadata.MD {
	md := metadata.MD{}
	if span, ok := tracer.SpanFromContext(ctx); ok {
		spanCtx := span.Context()
		md.Set(headers.HeaderXTraceID, spanCtx.TraceID())
		md.Set(headers.HeaderXSpanID, strconv.FormatUint(spanCtx.SpanID(), 10))
	}
	if id := requestIDOf(ctx); id != "" {
		md.Set(headers.HeaderXRequestID, id)
	}
	return md
}
