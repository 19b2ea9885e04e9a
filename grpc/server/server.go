// Package server runs the HTTP and gRPC listeners of the service and shuts them down gracefully.
package server

import (
	"context"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/grpc/interceptors"
)

const DefaultGRPCMaxMsgSize = 1024 * 1024 * 10 // 10MB

var ErrNoServers = errors.New("no servers configured")

type Server struct {
	httpConfigs     []*HTTPConfig
	grpcConfigs     []*GRPCConfig
	hooks           ShutdownHooks
	shutdownTimeout time.Duration
	log             *logger.Logger

	names     map[string]struct{}
	addresses map[string]struct{}
}

type Option func(*Server) error

// WithHTTPServer serves handler on address.
func WithHTTPServer(name, address string, handler http.Handler, opts ...HTTPConfigOption) Option {
	return func(s *Server) error {
		if handler == nil {
			return errors.Newf("http server %q has no handler", name)
		}
		if err := s.claim(name, address); err != nil {
			return err
		}
		cfg := &HTTPConfig{
			Name:          name,
			Address:       address,
			Handler:       handler,
			ReadTimeout:   DefaultHTTPReadTimeout,
			WriteTimeout:  DefaultHTTPWriteTimeout,
			IdleTimeout:   DefaultHTTPIdleTimeout,
			HeaderTimeout: DefaultHTTPHeaderTimeout,
		}
		for _, opt := range opts {
			opt(cfg)
		}
		s.httpConfigs = append(s.httpConfigs, cfg)
		return nil
	}
}

// WithGRPCServer serves grpcServer on address, or a server built by NewGRPCServer without
// interceptors when grpcServer is nil. setup registers the services.
func WithGRPCServer(name, address string, grpcServer *grpc.Server, setup func(*grpc.Server)) Option {
	return func(s *Server) error {
		if setup == nil {
			return errors.Newf("grpc server %q has no setup function", name)
		}
		if err := s.claim(name, address); err != nil {
			return err
		}
		s.grpcConfigs = append(s.grpcConfigs, &GRPCConfig{
			Name:       name,
			Address:    address,
			GRPCServer: grpcServer,
			SetupFunc:  setup,
		})
		return nil
	}
}

func WithShutdownHook(hook ShutdownHook) Option {
	return func(s *Server) error {
		if hook.Hook == nil {
			return errors.Newf("shutdown hook %q has no function", hook.Name)
		}
		if hook.Timeout <= 0 {
			hook.Timeout = DefaultHookTimeout
		}
		s.hooks = append(s.hooks, hook)
		return nil
	}
}

func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		s.shutdownTimeout = timeout
		return nil
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Server) error {
		s.log = log
		return nil
	}
}

// NewServer validates the listeners. Names must be unique, and so must addresses, except ":0".
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		shutdownTimeout: DefaultShutdownTimeout,
		log:             logger.Instance(),
		names:           map[string]struct{}{},
		addresses:       map[string]struct{}{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) claim(name, address string) error {
	if _, ok := s.names[name]; ok {
		return errors.Newf("duplicate server name %q", name)
	}
	if _, ok := s.addresses[address]; ok && !isEphemeral(address) {
		return errors.Newf("duplicate server address %q", address)
	}
	s.names[name] = struct{}{}
	s.addresses[address] = struct{}{}
	return nil
}

func isEphemeral(address string) bool {
	_, port, err := net.SplitHostPort(address)
	return err == nil && port == "0"
}

// Serve listens on every configured address and blocks until ctx is done or a listener fails,
// then stops every listener and runs the shutdown hooks.
func (s *Server) Serve(ctx context.Context) error {
	if len(s.httpConfigs)+len(s.grpcConfigs) == 0 {
		return ErrNoServers
	}

	httpListeners, grpcListeners, err := s.listen(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	httpServers := make([]*http.Server, 0, len(s.httpConfigs))
	grpcServers := make([]*grpc.Server, 0, len(s.grpcConfigs))

	for i, cfg := range s.httpConfigs {
		l, srv, name := httpListeners[i], cfg.server(), cfg.Name
		httpServers = append(httpServers, srv)
		s.log.Info("Starting HTTP server", logger.String("name", name), logger.String("address", l.Addr().String()))
		g.Go(func() error {
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "http server %s", name)
			}
			return nil
		})
	}

	for i, cfg := range s.grpcConfigs {
		l, gs, name := grpcListeners[i], cfg.GRPCServer, cfg.Name
		if gs == nil {
			gs = NewGRPCServer(nil, nil)
		}
		cfg.SetupFunc(gs)
		grpcServers = append(grpcServers, gs)
		s.log.Info("Starting gRPC server", logger.String("name", name), logger.String("address", l.Addr().String()))
		g.Go(func() error {
			// ErrServerStopped when shutdown won the race against Serve
			if err := gs.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return errors.Wrapf(err, "grpc server %s", name)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown(httpServers, grpcServers)
		return nil
	})

	return g.Wait()
}

// listen opens every listener up front, so a bad address fails Serve before anything runs.
func (s *Server) listen(ctx context.Context) ([]net.Listener, []net.Listener, error) {
	var (
		lc     net.ListenConfig
		opened []net.Listener
	)
	open := func(name, address string) (net.Listener, error) {
		l, err := lc.Listen(ctx, "tcp", address)
		if err != nil {
			for _, o := range opened {
				_ = o.Close()
			}
			return nil, errors.Wrapf(err, "failed to listen for %s", name)
		}
		opened = append(opened, l)
		return l, nil
	}

	httpListeners := make([]net.Listener, 0, len(s.httpConfigs))
	for _, cfg := range s.httpConfigs {
		l, err := open(cfg.Name, cfg.Address)
		if err != nil {
			return nil, nil, err
		}
		httpListeners = append(httpListeners, l)
	}
	grpcListeners := make([]net.Listener, 0, len(s.grpcConfigs))
	for _, cfg := range s.grpcConfigs {
		l, err := open(cfg.Name, cfg.Address)
		if err != nil {
			return nil, nil, err
		}
		grpcListeners = append(grpcListeners, l)
	}
	return httpListeners, grpcListeners, nil
}

func (s *Server) shutdown(httpServers []*http.Server, grpcServers []*grpc.Server) {
	s.log.Info("Shutting down servers")
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	for _, srv := range httpServers {
		if err := srv.Shutdown(ctx); err != nil {
			s.log.Warn("HTTP server did not shut down gracefully", logger.Error(err))
		}
	}
	for _, gs := range grpcServers {
		stopped := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			gs.Stop()
		}
	}

	s.runHooks()
}

func (s *Server) runHooks() {
	hooks := append(ShutdownHooks(nil), s.hooks...)
	sort.Stable(hooks)
	for _, h := range hooks {
		ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
		if err := h.Hook(ctx); err != nil {
			s.log.Warn("Shutdown hook failed", logger.String("hook", h.Name), logger.Error(err))
		}
		cancel()
	}
}

// NewGRPCServer creates a gRPC server running the given chains, which may be nil. Unknown
// methods answer codes.Unimplemented and server reflection is registered.
func NewGRPCServer(
	unary *interceptors.UnaryServerInterceptorChain,
	stream *interceptors.StreamServerInterceptorChain,
	serverOptions ...grpc.ServerOption,
) *grpc.Server {
	unknownHandler := func(_ any, _ grpc.ServerStream) error {
		return status.Error(codes.Unimplemented, "Unknown route")
	}

	opts := []grpc.ServerOption{
		grpc.UnknownServiceHandler(unknownHandler),
		grpc.MaxRecvMsgSize(DefaultGRPCMaxMsgSize),
		grpc.MaxSendMsgSize(DefaultGRPCMaxMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second, // ping after 30s of inactivity
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if unary != nil {
		opts = append(opts, grpc.UnaryInterceptor(unary.Commit()))
	}
	if stream != nil {
		opts = append(opts, grpc.StreamInterceptor(stream.Commit()))
	}
	opts = append(opts, serverOptions...)

	grpcServer := grpc.NewServer(opts...)
	reflection.Register(grpcServer)
	return grpcServer
}
