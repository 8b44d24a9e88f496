package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the PocketBus daemon
type Config struct {
	// Server configuration
	HTTPPort int    `env:"POCKETBUS_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"POCKETBUS_DEBUG" envDefault:"false"`

	// Bus configuration
	Bus BusConfig

	// Publisher configuration
	Publisher PublisherConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// BusConfig holds event bus configuration
type BusConfig struct {
	BackgroundPoolSize  int           `env:"BUS_BACKGROUND_POOL_SIZE" envDefault:"2"`
	CleanupCount        int           `env:"BUS_CLEANUP_COUNT" envDefault:"100"`
	HealthCheckInterval time.Duration `env:"BUS_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// PublisherConfig holds publisher configuration
type PublisherConfig struct {
	// A zero interval disables the heartbeat
	HeartbeatInterval time.Duration `env:"PUBLISHER_HEARTBEAT_INTERVAL" envDefault:"10s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server port
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	// Validate bus config
	if c.Bus.BackgroundPoolSize < 1 {
		return fmt.Errorf("background pool size must be at least 1")
	}
	if c.Bus.CleanupCount < 1 {
		return fmt.Errorf("cleanup count must be at least 1")
	}

	if c.Publisher.HeartbeatInterval < 0 {
		return fmt.Errorf("heartbeat interval cannot be negative: %s", c.Publisher.HeartbeatInterval)
	}
	if c.Timeouts.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive: %s", c.Timeouts.ShutdownTimeout)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// EffectiveLogLevel returns the level the daemon logs at. Debug mode
// forces debug level, since bus debug output is logged at that level.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
