// Package health probes the gRPC health service of a running instance.
package health

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rainbow-me/logcontext/grpc/interceptors"
)

var ErrNotServing = errors.New("service is not serving")

type config struct {
	target      string
	dialTimeout time.Duration
	dialOptions []grpc.DialOption
}

type Option func(*config)

func WithTarget(target string) Option {
	return func(c *config) {
		c.target = target
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.dialTimeout = timeout
	}
}

func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *config) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

type HealthChecker struct {
	client grpc_health_v1.HealthClient
	conn   *grpc.ClientConn
}

// NewHealthChecker connects lazily to target, localhost:50051 by default, over plaintext. Calls
// forward the request id of the caller context.
func NewHealthChecker(opts ...Option) (*HealthChecker, error) {
	c := &config{
		target:      "localhost:50051",
		dialTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.target == "" {
		return nil, errors.New("target address is required")
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff:           backoff.DefaultConfig,
			MinConnectTimeout: c.dialTimeout,
		}),
		grpc.WithUnaryInterceptor(interceptors.UnaryRequestIDClientInterceptor),
	}, c.dialOptions...)

	conn, err := grpc.NewClient(c.target, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create health client for %s", c.target)
	}
	return &HealthChecker{client: grpc_health_v1.NewHealthClient(conn), conn: conn}, nil
}

func (h *HealthChecker) Check(
	ctx context.Context,
	req *grpc_health_v1.HealthCheckRequest,
	opts ...grpc.CallOption,
) (*grpc_health_v1.HealthCheckResponse, error) {
	return h.client.Check(ctx, req, opts...)
}

// Probe returns nil when service, "" for the whole server, reports SERVING.
func (h *HealthChecker) Probe(ctx context.Context, service string) error {
	resp, err := h.client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return errors.Wrap(err, "health check failed")
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return errors.Wrapf(ErrNotServing, "status %s", resp.GetStatus())
	}
	return nil
}

func (h *HealthChecker) Close() error {
	if h.conn != nil {
		return h.conn.Close()
	}
	return nil
}
