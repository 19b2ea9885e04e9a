package main

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"

	"github.com/rainbow-me/logcontext/common/config"
	"github.com/rainbow-me/logcontext/common/logger"
	"github.com/rainbow-me/logcontext/pkg/populator"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
	backendREST   = "rest"
)

type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Server  ServerConfig  `mapstructure:"server"`
	Tracing TracingConfig `mapstructure:"tracing"`
	MDC     MDCConfig     `mapstructure:"mdc"`
	Cookie  CookieConfig  `mapstructure:"cookie"`
	Ticket  TicketConfig  `mapstructure:"ticket"`
}

type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	GRPCAddr        string        `mapstructure:"grpcAddr"`
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	HTTPDebug       bool          `mapstructure:"httpDebug"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Metrics bool `mapstructure:"metrics"`
}

type MDCConfig struct {
	ContextPath      string            `mapstructure:"contextPath"`
	Timezone         string            `mapstructure:"timezone"`
	DefaultLocale    string            `mapstructure:"defaultLocale"`
	FormParameters   bool              `mapstructure:"formParameters"`
	StrictIdentity   bool              `mapstructure:"strictIdentity"`
	SensitiveHeaders []string          `mapstructure:"sensitiveHeaders"`
	KeyPrefixes      KeyPrefixesConfig `mapstructure:"keyPrefixes"`
}

type KeyPrefixesConfig struct {
	Parameter string `mapstructure:"parameter"`
	Attribute string `mapstructure:"attribute"`
	Header    string `mapstructure:"header"`
}

type CookieConfig struct {
	Name string `mapstructure:"name"`
}

type TicketConfig struct {
	Backend string       `mapstructure:"backend"`
	Redis   RedisConfig  `mapstructure:"redis"`
	REST    RESTConfig   `mapstructure:"rest"`
	Memory  MemoryConfig `mapstructure:"memory"`
	Cache   CacheConfig  `mapstructure:"cache"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"baseUrl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MemoryConfig seeds the in-memory registry with a ticket for SeedPrincipal, so the service can
// be tried locally without a registry.
type MemoryConfig struct {
	SeedPrincipal string        `mapstructure:"seedPrincipal"`
	SeedTTL       time.Duration `mapstructure:"seedTtl"`
}

// CacheConfig enables the resolved principal cache when Size is positive.
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

func loadConfig(log *logger.Logger, opts ...config.ReadConfigOption) (*Config, error) {
	var cfg Config
	if err := config.LoadConfig(&cfg, log, opts...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Service.Name == "" {
		return errors.New("service.name is required")
	}
	if c.Server.Addr == "" && c.Server.GRPCAddr == "" {
		return errors.New("one of server.addr or server.grpcAddr is required")
	}

	switch strings.ToLower(c.Ticket.Backend) {
	case backendMemory, "":
	case backendRedis:
		if c.Ticket.Redis.Addr == "" {
			return errors.New("ticket.redis.addr is required")
		}
	case backendREST:
		if c.Ticket.REST.BaseURL == "" {
			return errors.New("ticket.rest.baseUrl is required")
		}
	default:
		return errors.Newf("unknown ticket backend %q", c.Ticket.Backend)
	}

	if c.Ticket.Cache.Size > 0 && c.Ticket.Cache.TTL <= 0 {
		return errors.New("ticket.cache.ttl is required when the cache is enabled")
	}
	return nil
}

// populatorOptions maps the mdc section to populator options.
func (c *MDCConfig) populatorOptions() ([]populator.Option, error) {
	opts := []populator.Option{
		populator.WithContextPath(c.ContextPath),
		populator.WithFormParameters(c.FormParameters),
		populator.WithStrictIdentity(c.StrictIdentity),
		populator.WithSensitiveHeaders(c.SensitiveHeaders...),
		populator.WithKeyPrefixes(populator.KeyPrefixes(c.KeyPrefixes)),
	}

	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid mdc.timezone %q", c.Timezone)
		}
		opts = append(opts, populator.WithLocation(loc))
	}
	if c.DefaultLocale != "" {
		tag, err := language.Parse(c.DefaultLocale)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid mdc.defaultLocale %q", c.DefaultLocale)
		}
		opts = append(opts, populator.WithDefaultLocale(tag))
	}
	return opts, nil
}
