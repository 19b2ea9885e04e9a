package server

import (
	"net/http"
	"time"

	"google.golang.org/grpc"
)

var (
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultHookTimeout       = 5 * time.Second
	DefaultHTTPReadTimeout   = 5 * time.Second
	DefaultHTTPWriteTimeout  = 10 * time.Second
	DefaultHTTPIdleTimeout   = 120 * time.Second
	DefaultHTTPHeaderTimeout = 2 * time.Second
)

// HTTPConfig describes an HTTP listener.
type HTTPConfig struct {
	Name          string       // unique, used in logs
	Address       string       // e.g. ":8080"
	Handler       http.Handler // routes and middlewares, MDC included
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	HeaderTimeout time.Duration
}

// GRPCConfig describes a gRPC listener.
type GRPCConfig struct {
	Name       string             // unique, used in logs
	Address    string             // e.g. ":9090"
	GRPCServer *grpc.Server       // created with NewGRPCServer when nil
	SetupFunc  func(*grpc.Server) // registers the services
}

type HTTPConfigOption func(*HTTPConfig)

func WithHTTPReadTimeout(timeout time.Duration) HTTPConfigOption {
	return func(c *HTTPConfig) {
		c.ReadTimeout = timeout
	}
}

func WithHTTPWriteTimeout(timeout time.Duration) HTTPConfigOption {
	return func(c *HTTPConfig) {
		c.WriteTimeout = timeout
	}
}

func WithHTTPIdleTimeout(timeout time.Duration) HTTPConfigOption {
	return func(c *HTTPConfig) {
		c.IdleTimeout = timeout
	}
}

func WithHTTPHeaderTimeout(timeout time.Duration) HTTPConfigOption {
	return func(c *HTTPConfig) {
		c.HeaderTimeout = timeout
	}
}

func (c *HTTPConfig) server() *http.Server {
	return &http.Server{
		Addr:              c.Address,
		Handler:           c.Handler,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       c.IdleTimeout,
		ReadHeaderTimeout: c.HeaderTimeout,
	}
}
