package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/authz"
	"github.com/ArashRezazadeh/DataAnnotations/internal/token"
)

// EnvPrefix is prepended to every environment variable, with "." in keys
// replaced by "_" (server.addr is AUTHD_SERVER_ADDR).
const EnvPrefix = "AUTHD"

// Session backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig       `mapstructure:"server"`
	Database   DatabaseConfig     `mapstructure:"database"`
	Log        LogConfig          `mapstructure:"log"`
	JWT        JWTConfig          `mapstructure:"jwt"`
	Session    SessionConfig      `mapstructure:"session"`
	Revocation RevocationConfig   `mapstructure:"revocation"`
	OTel       OTelConfig         `mapstructure:"otel"`
	Policies   []authz.Definition `mapstructure:"policies"`

	// SigningKey is resolved from JWT.Key or JWT.KeyFile by Load.
	SigningKey []byte `mapstructure:"-"`
}

type ServerConfig struct {
	// Bind address (host:port)
	Addr         string   `mapstructure:"addr"`
	RequireHTTPS bool     `mapstructure:"require_https"`
	CORSOrigins  []string `mapstructure:"cors_origins"`

	// LoginMechanism is the login mode used when a request does not pick one.
	LoginMechanism string `mapstructure:"login_mechanism"`

	// RouteMechanism is the mechanism accepted by the general protected
	// routes (any, bearer or cookie).
	RouteMechanism string `mapstructure:"route_mechanism"`
}

type DatabaseConfig struct {
	// Postgres URL or SQLite DSN
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JWTConfig is the bearer token issuance configuration. Key takes precedence
// over KeyFile.
type JWTConfig struct {
	Key      string        `mapstructure:"key"`
	KeyFile  string        `mapstructure:"key_file"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	Backend         string        `mapstructure:"backend"`
	CookieName      string        `mapstructure:"cookie_name"`
	SlidingWindow   time.Duration `mapstructure:"sliding_window"`
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	BoltPath        string        `mapstructure:"bolt_path"`
}

type RevocationConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

type OTelConfig struct {
	// Endpoint of the OTLP/HTTP collector; empty disables tracing
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

var defaults = map[string]any{
	"server.addr":              "localhost:8080",
	"server.require_https":     false,
	"server.cors_origins":      []string{"*"},
	"server.login_mechanism":   "token",
	"server.route_mechanism":   "any",
	"database.url":             "file:authd.db",
	"log.level":                "info",
	"log.format":               "json",
	"jwt.key":                  "",
	"jwt.key_file":             "jwt-key.txt",
	"jwt.issuer":               "",
	"jwt.audience":             "",
	"jwt.ttl":                  "60m",
	"session.backend":          BackendMemory,
	"session.cookie_name":      auth.DefaultSessionCookieName,
	"session.sliding_window":   "60m",
	"session.max_lifetime":     "12h",
	"session.cleanup_interval": "5m",
	"session.redis_addr":       "localhost:6379",
	"session.redis_password":   "",
	"session.redis_db":         0,
	"session.bolt_path":        "sessions.db",
	"revocation.cache_size":    10000,
	"otel.endpoint":            "",
	"otel.insecure":            false,
	"otel.service_name":        "authd",
}

// SetDefaults registers every key with viper so that environment variables
// are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the global viper instance (config file
// already read by the CLI, then AUTHD_* environment variables, then
// defaults) and resolves the signing key.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper(), true)
}

// LoadWithoutKey is Load for commands that never sign or validate tokens.
func LoadWithoutKey() (*Config, error) {
	return LoadFrom(viper.GetViper(), false)
}

// LoadFrom decodes v into a Config and validates it. A .env file in the
// working directory, if present, is loaded first. Every validation failure
// wraps auth.ErrConfiguration.
func LoadFrom(v *viper.Viper, requireKey bool) (*Config, error) {
	_ = godotenv.Load()
	SetDefaults(v)

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", auth.ErrConfiguration, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if requireKey {
		if cfg.JWT.Issuer == "" || cfg.JWT.Audience == "" {
			return nil, fmt.Errorf("%w: jwt.issuer and jwt.audience are required", auth.ErrConfiguration)
		}
		key, err := cfg.resolveKey()
		if err != nil {
			return nil, err
		}
		cfg.SigningKey = key
	}
	return cfg, nil
}

func (c *Config) resolveKey() ([]byte, error) {
	if k := strings.TrimSpace(c.JWT.Key); k != "" {
		key := []byte(k)
		if err := token.CheckKey(key); err != nil {
			return nil, err
		}
		return key, nil
	}
	if c.JWT.KeyFile == "" {
		return nil, fmt.Errorf("%w: jwt.key or jwt.key_file is required", auth.ErrConfiguration)
	}
	return token.LoadKeyFile(c.JWT.KeyFile)
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("%w: database.url is required", auth.ErrConfiguration)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("%w: jwt.ttl must be positive", auth.ErrConfiguration)
	}
	if c.Session.SlidingWindow <= 0 || c.Session.SlidingWindow >= c.Session.MaxLifetime {
		return fmt.Errorf("%w: session.sliding_window (%s) must be positive and shorter than session.max_lifetime (%s)",
			auth.ErrConfiguration, c.Session.SlidingWindow, c.Session.MaxLifetime)
	}
	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("%w: session.cleanup_interval must be positive", auth.ErrConfiguration)
	}
	switch c.Session.Backend {
	case BackendMemory, BackendSQL, BackendRedis, BackendBolt:
	default:
		return fmt.Errorf("%w: unknown session.backend %q", auth.ErrConfiguration, c.Session.Backend)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("%w: session.cookie_name is required", auth.ErrConfiguration)
	}
	if !oneOf(c.Server.LoginMechanism, "token", "bearer", "cookie") {
		return fmt.Errorf("%w: unknown server.login_mechanism %q", auth.ErrConfiguration, c.Server.LoginMechanism)
	}
	if !oneOf(c.Server.RouteMechanism, "any", "bearer", "cookie") {
		return fmt.Errorf("%w: unknown server.route_mechanism %q", auth.ErrConfiguration, c.Server.RouteMechanism)
	}
	return nil
}

func oneOf(s string, options ...string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
