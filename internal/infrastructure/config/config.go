package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all gateway configuration.
type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	Gate      GateConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Overload  OverloadConfig
	Logging   LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// UpstreamConfig points at the backend the gateway fronts.
type UpstreamConfig struct {
	Address string `envconfig:"UPSTREAM_ADDR" default:"http://localhost:8000"`
}

// GateConfig holds request classification settings.
type GateConfig struct {
	// APIPrefix marks the paths subject to CORS negotiation and rate
	// limiting.
	APIPrefix string `envconfig:"API_PREFIX" default:"/api"`
	// AuthPrefix is the API sub-path exempt from rate limiting; the auth
	// provider applies its own lockout rules.
	AuthPrefix string `envconfig:"AUTH_PREFIX" default:"/api/auth"`
	// AllowedOrigins extends the same-origin CORS rule with an explicit
	// allowlist.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// RateLimitConfig holds the per-client window policy.
type RateLimitConfig struct {
	Limit     int           `envconfig:"RATE_LIMIT" default:"60"`
	Window    time.Duration `envconfig:"RATE_WINDOW" default:"60s"`
	BucketCap int           `envconfig:"RATE_BUCKET_CAP" default:"0"`
	Enabled   bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// RedisConfig selects the shared counter store when enabled.
type RedisConfig struct {
	Address string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Prefix  string `envconfig:"REDIS_PREFIX" default:"gate"`
	Enabled bool   `envconfig:"REDIS_ENABLED" default:"false"`
}

// OverloadConfig holds the process-wide token bucket guard.
type OverloadConfig struct {
	RequestsPerSecond int  `envconfig:"OVERLOAD_RPS" default:"500"`
	Burst             int  `envconfig:"OVERLOAD_BURST" default:"1000"`
	Enabled           bool `envconfig:"OVERLOAD_ENABLED" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Upstream: UpstreamConfig{
			Address: "http://localhost:8000",
		},
		Gate: GateConfig{
			APIPrefix:  "/api",
			AuthPrefix: "/api/auth",
		},
		RateLimit: RateLimitConfig{
			Limit:   60,
			Window:  60 * time.Second,
			Enabled: true,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Prefix:  "gate",
		},
		Overload: OverloadConfig{
			RequestsPerSecond: 500,
			Burst:             1000,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
