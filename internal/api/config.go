package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Backends for document storage.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the document server configuration. Every field is read from
// a VEMPAT_SERVER_* environment variable.
type Config struct {
	Env             string        `envconfig:"ENV" default:"development"`
	ListenAddr      string        `envconfig:"LISTEN_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"` // "json" or "text"
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`

	Backend     string `envconfig:"BACKEND" default:"memory"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"vempat"`

	// APIKey guards the document and user routes when set.
	APIKey string `envconfig:"API_KEY"`

	RateLimit     int `envconfig:"RATE_LIMIT" default:"600"`    // per IP per minute
	RateLimitAuth int `envconfig:"RATE_LIMIT_AUTH" default:"10"` // logins per IP per minute

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// Seed admin created on startup when no user has that email.
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("VEMPAT_SERVER", &cfg); err != nil {
		return Config{}, err
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	switch cfg.Backend {
	case BackendMemory, BackendRedis:
	default:
		return Config{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.RateLimit <= 0 || cfg.RateLimitAuth <= 0 {
		return Config{}, fmt.Errorf("rate limits must be positive")
	}
	return cfg, nil
}

// IsProduction reports whether the server runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
