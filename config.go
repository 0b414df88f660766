package realtime

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// EnvConfig holds process-level defaults for the example CLI
// (cmd/realtime-demo); the library itself never requires it — callers
// construct Options programmatically. Grounded on old_ws/config.go's
// struct-tag + LoadConfig + Validate shape (DESIGN.md), renamed from WS
// server capacity knobs to realtime client connection knobs.
type EnvConfig struct {
	Host        string `env:"REALTIME_HOST" envDefault:""`
	Environment string `env:"REALTIME_ENVIRONMENT" envDefault:""`
	APIKey      string `env:"REALTIME_KEY" envDefault:""`
	ClientID    string `env:"REALTIME_CLIENT_ID" envDefault:""`
	DisableTLS  bool   `env:"REALTIME_DISABLE_TLS" envDefault:"false"`
	EchoMessages bool  `env:"REALTIME_ECHO_MESSAGES" envDefault:"true"`
	Recover     string `env:"REALTIME_RECOVER" envDefault:""`
	Format      string `env:"REALTIME_FORMAT" envDefault:"json"`

	ReconnectTimeoutDisconnected time.Duration `env:"REALTIME_RECONNECT_TIMEOUT_DISCONNECTED" envDefault:"15s"`
	ReconnectTimeoutSuspended    time.Duration `env:"REALTIME_RECONNECT_TIMEOUT_SUSPENDED" envDefault:"30s"`
	MaxDisconnectedRetries       int           `env:"REALTIME_MAX_DISCONNECTED_RETRIES" envDefault:"3"`

	TelemetryNATSURL    string `env:"REALTIME_TELEMETRY_NATS_URL" envDefault:""`
	SampleResourceUsage bool   `env:"REALTIME_SAMPLE_RESOURCE_USAGE" envDefault:"false"`

	LogLevel string `env:"REALTIME_LOG_LEVEL" envDefault:"info"`
}

// LoadEnvConfig reads configuration from an optional .env file and the
// process environment. Priority: ENV vars > .env file > defaults, same
// as old_ws/config.go's LoadConfig.
func LoadEnvConfig(logger *zerolog.Logger) (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found (using environment variables only)")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if logger != nil {
		logger.Info().Msg("configuration loaded and validated successfully")
	}
	return cfg, nil
}

// Validate checks EnvConfig for internally-inconsistent values.
func (c *EnvConfig) Validate() error {
	if c.ClientID == "*" {
		return fmt.Errorf("REALTIME_CLIENT_ID must not be the literal \"*\"")
	}
	if c.Format != "json" && c.Format != "msgpack" {
		return fmt.Errorf("REALTIME_FORMAT must be one of: json, msgpack (got: %s)", c.Format)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("REALTIME_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	if c.MaxDisconnectedRetries < 1 {
		return fmt.Errorf("REALTIME_MAX_DISCONNECTED_RETRIES must be > 0, got %d", c.MaxDisconnectedRetries)
	}
	return nil
}

// ToOptions builds library Options from the env-sourced config, for use
// by the example CLI only.
func (c *EnvConfig) ToOptions() Options {
	return Options{
		Host:                         c.Host,
		Environment:                  c.Environment,
		Key:                          c.APIKey,
		ClientID:                     c.ClientID,
		DisableTLS:                   c.DisableTLS,
		EchoMessages:                 c.EchoMessages,
		Recover:                      c.Recover,
		Format:                       c.Format,
		ReconnectTimeoutDisconnected: c.ReconnectTimeoutDisconnected,
		ReconnectTimeoutSuspended:    c.ReconnectTimeoutSuspended,
		MaxDisconnectedRetries:       c.MaxDisconnectedRetries,
		TelemetryNATSURL:             c.TelemetryNATSURL,
		SampleResourceUsage:          c.SampleResourceUsage,
		LogLevel:                     c.LogLevel,
	}
}
