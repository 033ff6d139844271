package config

import (
	"time"

	kvpostgres "github.com/haneul-dev/addrsearch/internal/infra/kv/postgres"
	kvredis "github.com/haneul-dev/addrsearch/internal/infra/kv/redis"
	"github.com/haneul-dev/addrsearch/internal/search/proxy"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Proxy   proxy.Config  `yaml:"proxy"`
	Search  SearchConfig  `yaml:"search"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SearchConfig tunes the search pipeline.
type SearchConfig struct {
	// DisableHistory stops API searches from entering durable history.
	DisableHistory bool `yaml:"disable_history"`

	// Retry policy overrides; zero values fall back to the defaults.
	MaxAttempts         int           `yaml:"max_attempts"`
	RateLimitedAttempts int           `yaml:"rate_limited_attempts"`
	RateLimitedDelay    time.Duration `yaml:"rate_limited_delay"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay       time.Duration `yaml:"retry_max_delay"`
}

// StorageConfig selects and configures the durable kv backend.
type StorageConfig struct {
	// Backend is one of "memory", "sqlite", "redis", "postgres".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	Redis    kvredis.Config    `yaml:"redis"`
	Postgres kvpostgres.Config `yaml:"postgres"`
}
