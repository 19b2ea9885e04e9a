package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rainbow-me/logcontext/common/env"
	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/common/mdc"
	"github.com/rainbow-me/logcontext/grpc/interceptors"
	"github.com/rainbow-me/logcontext/grpc/server"
	resthttp "github.com/rainbow-me/logcontext/http"
	gininterceptors "github.com/rainbow-me/logcontext/http/interceptors/gin"
	"github.com/rainbow-me/logcontext/pkg/cookie"
	"github.com/rainbow-me/logcontext/pkg/populator"
	"github.com/rainbow-me/logcontext/pkg/ticket"
)

const defaultSeedTTL = 8 * time.Hour

// newRegistry builds the configured ticket registry. The returned hooks release its resources.
func newRegistry(ctx context.Context, cfg *TicketConfig, log *logger.Logger) (ticket.Registry, []server.ShutdownHook, error) {
	switch strings.ToLower(cfg.Backend) {
	case backendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		var opts []ticket.RedisOption
		if cfg.Redis.KeyPrefix != "" {
			opts = append(opts, ticket.WithKeyPrefix(cfg.Redis.KeyPrefix))
		}
		registry := ticket.NewRedisRegistry(client, opts...)
		if err := registry.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, errors.Wrapf(err, "ticket registry at %s is unreachable", cfg.Redis.Addr)
		}
		closeHook := server.ShutdownHook{
			Name: "redis",
			Hook: func(context.Context) error { return client.Close() },
		}
		return registry, []server.ShutdownHook{closeHook}, nil

	case backendREST:
		client := resthttp.NewRestyWithClient(&http.Client{Timeout: cfg.REST.Timeout}, log).
			SetBaseURL(cfg.REST.BaseURL)
		return ticket.NewRESTRegistry(client), nil, nil

	default:
		registry := ticket.NewMemoryRegistry()
		if cfg.Memory.SeedPrincipal != "" {
			ttl := cfg.Memory.SeedTTL
			if ttl <= 0 {
				ttl = defaultSeedTTL
			}
			tgt := ticket.NewGrantingTicket(&ticket.Principal{ID: cfg.Memory.SeedPrincipal}, ttl, time.Now())
			if err := registry.AddTicket(ctx, tgt); err != nil {
				return nil, nil, err
			}
			log.Info("Seeded ticket-granting ticket",
				logger.String("principal", cfg.Memory.SeedPrincipal),
				logger.String("ticket", tgt.ID))
		}
		return registry, nil, nil
	}
}

func newResolver(registry ticket.Registry, cfg *CacheConfig) (ticket.Resolver, error) {
	support := ticket.NewSupport(registry)
	if cfg.Size <= 0 {
		return support, nil
	}
	return ticket.NewCachedSupport(support, cfg.Size, cfg.TTL)
}

func newPopulator(cfg *Config, resolver ticket.Resolver, log *logger.Logger) (*populator.Populator, error) {
	opts, err := cfg.MDC.populatorOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		populator.WithTokenStore(cookie.NewStore(cfg.Cookie.Name)),
		populator.WithIdentityResolver(resolver),
		populator.WithLogger(log),
	)

	p := populator.New(opts...)
	if err := p.Initialize(nil); err != nil {
		return nil, errors.Wrap(err, "failed to initialize populator")
	}
	return p, nil
}

// newHTTPHandler serves /whoami, which echoes the diagnostic context of the request.
func newHTTPHandler(cfg *Config, p *populator.Populator, environment env.Environment) http.Handler {
	if !environment.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := []gininterceptors.InterceptorOpt{
		gininterceptors.WithPopulator(p),
		gininterceptors.WithTracingEnabled(cfg.Tracing.Enabled),
	}
	if cfg.Server.RequestTimeout > 0 {
		opts = append(opts, gininterceptors.WithTimeout(cfg.Server.RequestTimeout))
	}
	if cfg.Server.HTTPDebug {
		opts = append(opts, gininterceptors.WithHTTPDebug())
	}

	r := gin.New()
	r.Use(gininterceptors.DefaultInterceptors(opts...)...)
	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.Any("/whoami", whoami)

	// remote address and scheme come from the forwarding proxy
	return handlers.ProxyHeaders(r)
}

func whoami(c *gin.Context) {
	ctx := c.Request.Context()
	mdc.Logger(ctx).Debug("Echoing diagnostic context")

	entries := map[string]string{}
	if mc, ok := mdc.FromContext(ctx); ok {
		entries = mc.ToMap()
	}
	c.JSON(http.StatusOK, entries)
}

// newGRPCServer serves the standard health service behind the default interceptor chains.
func newGRPCServer(
	cfg *Config,
	p *populator.Populator,
	environment env.Environment,
	log *logger.Logger,
) (*grpc.Server, *grpchealth.Server) {
	opts := []interceptors.ConfigOption{
		interceptors.WithPopulator(p),
		interceptors.WithTracing(cfg.Tracing.Enabled),
	}
	if cfg.Server.RequestTimeout > 0 {
		opts = append(opts, interceptors.WithRequestTimeout(cfg.Server.RequestTimeout))
	}

	gs := server.NewGRPCServer(
		interceptors.NewDefaultServerUnaryChain(cfg.Service.Name, environment.String(), log, opts...),
		interceptors.NewDefaultServerStreamChain(cfg.Service.Name, environment.String(), log, opts...),
	)
	healthSrv := grpchealth.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	return gs, healthSrv
}
