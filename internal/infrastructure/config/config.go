package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Services  ServicesConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// Global shares one bucket across all clients instead of one per client IP
	Global bool `envconfig:"RATE_LIMIT_GLOBAL" default:"false"`
}

// ServicesConfig locates the service catalog and carries provider credentials.
type ServicesConfig struct {
	File             string        `envconfig:"AIKERNEL_SERVICES_FILE"`
	HuggingFaceToken string        `envconfig:"HF_API_TOKEN"`
	OpenAIKey        string        `envconfig:"OPENAI_API_KEY"`
	Timeout          time.Duration `envconfig:"AIKERNEL_BACKEND_TIMEOUT" default:"60s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit needs positive RATE_LIMIT_RPS and RATE_LIMIT_BURST when enabled")
	}
	if c.Services.Timeout <= 0 {
		return fmt.Errorf("AIKERNEL_BACKEND_TIMEOUT must be positive, got %s", c.Services.Timeout)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Services: ServicesConfig{
			Timeout: 60 * time.Second,
		},
	}
}

// Catalog returns the service catalog named by Services.File,
// or the built-in catalog when no file is configured.
func (c *Config) Catalog() (*Catalog, error) {
	if c.Services.File == "" {
		return DefaultCatalog(), nil
	}
	return LoadCatalog(c.Services.File)
}
