package interceptors

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServerDeadlineInterceptor bounds the processing time of unary calls. A shorter client deadline
// still wins since the earliest deadline of a context always applies.
func ServerDeadlineInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return handler(ctx, req)
	}
}

// contextStatusError carries a gRPC status while keeping the context error reachable through
// errors.Is.
type contextStatusError struct {
	*status.Status
	error
}

func (e *contextStatusError) GRPCStatus() *status.Status {
	return e.Status
}

func (e *contextStatusError) Unwrap() error {
	return e.error
}

// UnaryContextStatusInterceptor reports context.Canceled as codes.Canceled and
// context.DeadlineExceeded as codes.DeadlineExceeded instead of codes.Unknown.
func UnaryContextStatusInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		resp, err := handler(ctx, req)
		return resp, contextStatus(err)
	}
}

func contextStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return &contextStatusError{Status: status.New(codes.Canceled, "context canceled"), error: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &contextStatusError{Status: status.New(codes.DeadlineExceeded, "deadline exceeded"), error: err}
	default:
		return err
	}
}
