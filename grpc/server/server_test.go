package server_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/rainbow-me/logcontext/common/test"
	"github.com/rainbow-me/logcontext/grpc/server"
)

func TestNewServer(t *testing.T) {
	noop := func(*grpc.Server) {}
	tests := []struct {
		name    string
		opts    []server.Option
		wantErr bool
	}{
		{
			name: "No servers configured",
		},
		{
			name: "Valid HTTP server",
			opts: []server.Option{server.WithHTTPServer("http", ":0", http.NewServeMux())},
		},
		{
			name:    "HTTP server without handler",
			opts:    []server.Option{server.WithHTTPServer("http", ":0", nil)},
			wantErr: true,
		},
		{
			name: "Valid gRPC server",
			opts: []server.Option{server.WithGRPCServer("grpc", ":0", nil, noop)},
		},
		{
			name:    "gRPC server without setup",
			opts:    []server.Option{server.WithGRPCServer("grpc", ":0", nil, nil)},
			wantErr: true,
		},
		{
			name: "Duplicate names",
			opts: []server.Option{
				server.WithHTTPServer("dup", ":0", http.NewServeMux()),
				server.WithGRPCServer("dup", ":0", nil, noop),
			},
			wantErr: true,
		},
		{
			name: "Duplicate addresses",
			opts: []server.Option{
				server.WithHTTPServer("http1", ":9999", http.NewServeMux()),
				server.WithHTTPServer("http2", ":9999", http.NewServeMux()),
			},
			wantErr: true,
		},
		{
			name: "Ephemeral ports may repeat",
			opts: []server.Option{
				server.WithHTTPServer("http1", ":0", http.NewServeMux()),
				server.WithHTTPServer("http2", ":0", http.NewServeMux()),
			},
		},
		{
			name: "Hook without function",
			opts: []server.Option{
				server.WithShutdownHook(server.ShutdownHook{Name: "empty"}),
			},
			wantErr: true,
		},
		{
			name: "Shutdown timeout",
			opts: []server.Option{server.WithShutdownTimeout(time.Second)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := server.NewServer(tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServeWithoutServers(t *testing.T) {
	srv, err := server.NewServer()
	require.NoError(t, err)

	assert.ErrorIs(t, srv.Serve(context.Background()), server.ErrNoServers)
}

func TestServeListenError(t *testing.T) {
	srv, err := server.NewServer(
		server.WithLogger(test.NewLogger(t)),
		server.WithHTTPServer("http", "invalid-address", http.NewServeMux()),
	)
	require.NoError(t, err)

	err = srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen for http")
}

func TestServeShutsDownAndRunsHooksInOrder(t *testing.T) {
	var (
		order    []string
		setupRan bool
	)
	hook := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			if name == "failing" {
				return errors.New("hook failed")
			}
			return nil
		}
	}

	srv, err := server.NewServer(
		server.WithLogger(test.NewLogger(t)),
		server.WithShutdownTimeout(time.Second),
		server.WithHTTPServer("http", "127.0.0.1:0", http.NewServeMux()),
		server.WithGRPCServer("grpc", "127.0.0.1:0", nil, func(*grpc.Server) { setupRan = true }),
		server.WithShutdownHook(server.ShutdownHook{Name: "last", Priority: 10, Hook: hook("last")}),
		server.WithShutdownHook(server.ShutdownHook{Name: "failing", Priority: 5, Hook: hook("failing")}),
		server.WithShutdownHook(server.ShutdownHook{Name: "first", Priority: 1, Hook: hook("first")}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.True(t, setupRan)
	assert.Equal(t, []string{"first", "failing", "last"}, order)
}

func TestNewGRPCServer(t *testing.T) {
	gs := server.NewGRPCServer(nil, nil)
	require.NotNil(t, gs)

	// reflection is registered
	assert.NotEmpty(t, gs.GetServiceInfo())
}
