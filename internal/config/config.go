// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables. Every variable
// has a working default: a bare process comes up on local storage with
// no external services required.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Data directory for the file-backed record store
	DataDir string `env:"DATA_DIR" envDefault:"data"`

	// Cache (Redis). Optional: empty disables caching and rate limiting.
	RedisURL string `env:"REDIS_URL" envDefault:""`

	// Base URL the site is served from
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Business defaults
	DefaultCommissionRate float64 `env:"DEFAULT_COMMISSION_RATE" envDefault:"10"`
	RetentionDays         int     `env:"ANALYTICS_RETENTION_DAYS" envDefault:"90"`

	// Automation
	AutomationEnabled bool `env:"AUTOMATION_ENABLED" envDefault:"true"`

	// Discovery source credentials. Optional: a source without a token
	// still runs and fails as a normal upstream error.
	ProductHuntToken string        `env:"PRODUCTHUNT_TOKEN" envDefault:""`
	GitHubToken      string        `env:"GITHUB_TOKEN" envDefault:""`
	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting (requires Redis)
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"`
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
