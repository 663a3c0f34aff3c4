package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	ModeHTTP = "http"
	ModeCLI  = "cli"

	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all configuration for the cart process.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"minishop-cart"`
	Env         string `env:"ENV" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`

	// Mode selects the interactive menu or the HTTP server.
	Mode     string `env:"MODE" envDefault:"cli"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Storage
	CatalogFile      string `env:"CATALOG_FILE" envDefault:"products.json"`
	CartFile         string `env:"CART_FILE" envDefault:"cart.json"`
	CartBackend      string `env:"CART_BACKEND" envDefault:"file"`
	CartResetOnStart bool   `env:"CART_RESET_ON_START" envDefault:"true"`

	// Redis
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`
	RedisCartKey string `env:"REDIS_CART_KEY" envDefault:"minishop:cart"`

	TraceStdout     bool          `env:"TRACE_STDOUT" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Mode {
	case ModeHTTP, ModeCLI:
	default:
		return fmt.Errorf("invalid MODE %q: want %s or %s", c.Mode, ModeHTTP, ModeCLI)
	}

	switch c.CartBackend {
	case BackendFile:
		if c.CartFile == "" {
			return fmt.Errorf("CART_FILE is required for the %s backend", BackendFile)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the %s backend", BackendRedis)
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("invalid REDIS_DB: %d", c.RedisDB)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid CART_BACKEND %q", c.CartBackend)
	}

	if c.CatalogFile == "" {
		return fmt.Errorf("CATALOG_FILE is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
