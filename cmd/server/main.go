// Command server runs an HTTP and a gRPC endpoint behind the request diagnostic context: every
// request gets its fields and the principal of its ticket-granting cookie in the MDC.
//
//	server             run the service
//	server healthcheck probe the gRPC health service, for container health checks
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // mdc.timezone must resolve in minimal images

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rainbow-me/logcontext/common/env"
	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/grpc/health"
	"github.com/rainbow-me/logcontext/grpc/server"
	"github.com/rainbow-me/logcontext/observability"
)

const healthcheckTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	if err := run(ctx, cmd); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(ctx context.Context, cmd string) error {
	environment, err := env.GetApplicationEnv()
	if err != nil {
		return err
	}
	zl, err := logger.InitLogger()
	if err != nil {
		return err
	}
	lg := logger.NewLogger(zl)
	defer func() { _ = lg.Sync() }()

	cfg, err := loadConfig(lg)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	switch cmd {
	case "":
		return serve(ctx, cfg, environment, lg)
	case "healthcheck":
		return healthcheck(ctx, cfg)
	default:
		return errors.Newf("unknown command %q", cmd)
	}
}

func serve(ctx context.Context, cfg *Config, environment env.Environment, lg *logger.Logger) error {
	stopTracer := observability.InitObservability(cfg.Service.Name, environment.String(), lg,
		observability.WithTracing(cfg.Tracing.Enabled),
		observability.WithMetrics(cfg.Tracing.Metrics),
		observability.WithVersion(cfg.Service.Version),
	)

	registry, hooks, err := newRegistry(ctx, &cfg.Ticket, lg)
	if err != nil {
		stopTracer()
		return err
	}
	resolver, err := newResolver(registry, &cfg.Ticket.Cache)
	if err != nil {
		stopTracer()
		return err
	}
	p, err := newPopulator(cfg, resolver, lg)
	if err != nil {
		stopTracer()
		return err
	}

	opts := []server.Option{
		server.WithLogger(lg),
		server.WithShutdownHook(server.ShutdownHook{
			Name: "populator",
			Hook: func(context.Context) error {
				p.Teardown()
				return nil
			},
		}),
		// last, so spans of the other hooks are flushed
		server.WithShutdownHook(server.ShutdownHook{
			Name:     "tracer",
			Priority: 100,
			Hook: func(context.Context) error {
				stopTracer()
				return nil
			},
		}),
	}
	if cfg.Server.ShutdownTimeout > 0 {
		opts = append(opts, server.WithShutdownTimeout(cfg.Server.ShutdownTimeout))
	}
	for _, hook := range hooks {
		opts = append(opts, server.WithShutdownHook(hook))
	}
	if cfg.Server.Addr != "" {
		opts = append(opts, server.WithHTTPServer("http", cfg.Server.Addr, newHTTPHandler(cfg, p, environment)))
	}
	if cfg.Server.GRPCAddr != "" {
		gs, healthSrv := newGRPCServer(cfg, p, environment, lg)
		opts = append(opts, server.WithGRPCServer("grpc", cfg.Server.GRPCAddr, gs, func(*grpc.Server) {
			healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		}))
		opts = append(opts, server.WithShutdownHook(server.ShutdownHook{
			Name: "health",
			Hook: func(context.Context) error {
				healthSrv.Shutdown()
				return nil
			},
		}))
	}

	srv, err := server.NewServer(opts...)
	if err != nil {
		stopTracer()
		return err
	}
	lg.Info("Starting service",
		logger.String("service", cfg.Service.Name),
		logger.String("env", environment.String()),
		logger.String("ticketBackend", cfg.Ticket.Backend))
	return srv.Serve(ctx)
}

func healthcheck(ctx context.Context, cfg *Config) error {
	if cfg.Server.GRPCAddr == "" {
		return errors.New("server.grpcAddr is not configured")
	}
	checker, err := health.NewHealthChecker(health.WithTarget(localTarget(cfg.Server.GRPCAddr)))
	if err != nil {
		return err
	}
	defer func() { _ = checker.Close() }()

	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()
	return checker.Probe(ctx, "")
}

// localTarget turns a listen address like ":50051" into a dialable one.
func localTarget(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
