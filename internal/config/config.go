// Package config provides configuration loading for sparkd.
//
// Configuration is assembled from hardcoded defaults, an optional YAML file
// and SPARKD_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds the complete sparkd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Storage       StorageConfig       `koanf:"storage"`
	Assignments   AssignmentsConfig   `koanf:"assignments"`
	Catalog       CatalogConfig       `koanf:"catalog"`
	Events        EventsConfig        `koanf:"events"`
	Redemptions   RedemptionsConfig   `koanf:"redemptions"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// StorageConfig selects where users, profiles, reflections and redemptions live.
type StorageConfig struct {
	Backend      string `koanf:"backend"`
	PostgresDSN  Secret `koanf:"postgres_dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// AssignmentsConfig selects the store that deduplicates daily quest assignments.
type AssignmentsConfig struct {
	Backend   string   `koanf:"backend"`
	RedisAddr string   `koanf:"redis_addr"`
	RedisTTL  Duration `koanf:"redis_ttl"`
}

// CatalogConfig points at versioned catalog files. Empty paths use the
// catalogs compiled into the binary.
type CatalogConfig struct {
	RewardsFile string `koanf:"rewards_file"`
	QuestsFile  string `koanf:"quests_file"`
}

// EventsConfig controls domain event publication. An empty URL disables it.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// RedemptionsConfig controls the optional expiry sweep.
type RedemptionsConfig struct {
	SweepEnabled  bool   `koanf:"sweep_enabled"`
	SweepSchedule string `koanf:"sweep_schedule"`
}

// RateLimitConfig limits redeem calls per user.
type RateLimitConfig struct {
	RedeemPerMinute int `koanf:"redeem_per_minute"`
	Burst           int `koanf:"burst"`
}

// LoggingConfig holds the subset of logging settings exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8420
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendMemory
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = 10
	}

	if cfg.Assignments.Backend == "" {
		cfg.Assignments.Backend = cfg.Storage.Backend
	}
	if cfg.Assignments.RedisTTL == 0 {
		cfg.Assignments.RedisTTL = Duration(48 * time.Hour)
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "sparkd"
	}

	if cfg.Redemptions.SweepSchedule == "" {
		cfg.Redemptions.SweepSchedule = "@every 15m"
	}

	if cfg.RateLimit.RedeemPerMinute == 0 {
		cfg.RateLimit.RedeemPerMinute = 30
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "sparkd"
	}
	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if !c.Storage.PostgresDSN.IsSet() {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want memory or postgres)", c.Storage.Backend)
	}

	switch c.Assignments.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.Backend != BackendPostgres {
			return errors.New("postgres assignment store requires the postgres storage backend")
		}
	case BackendRedis:
		if c.Assignments.RedisAddr == "" {
			return errors.New("assignments.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown assignments backend %q", c.Assignments.Backend)
	}

	if c.Redemptions.SweepEnabled {
		if _, err := cron.ParseStandard(c.Redemptions.SweepSchedule); err != nil {
			return fmt.Errorf("invalid redemptions.sweep_schedule %q: %w", c.Redemptions.SweepSchedule, err)
		}
	}

	if c.RateLimit.RedeemPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limits cannot be negative")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}
