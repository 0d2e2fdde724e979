package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for sticker-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional stats cache)
	Redis RedisConfig `yaml:"redis"`

	// Storage behavior
	Storage StorageConfig `yaml:"storage"`

	// MigrationsPath is the directory holding SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"stickers"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"sticker_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL builds a pgx-compatible connection string.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// RedisConfig holds Redis configuration for the stats-snapshot cache.
// An empty host disables the cache entirely.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// StorageConfig bounds storage operations.
type StorageConfig struct {
	// QueryTimeout caps every single storage operation. On timeout the
	// operation fails as a storage error and the caller decides whether
	// the user-facing action degrades or retries.
	QueryTimeout time.Duration `yaml:"query_timeout" env:"STORAGE_QUERY_TIMEOUT" env-default:"5s"`

	// SnapshotCacheTTL is how long a cached stats snapshot stays fresh.
	SnapshotCacheTTL time.Duration `yaml:"snapshot_cache_ttl" env:"STORAGE_SNAPSHOT_CACHE_TTL" env-default:"30s"`
}

// Load reads configuration from config.yaml with environment overrides.
// A missing config.yaml is not an error: env vars and defaults apply.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.Storage.QueryTimeout <= 0 {
		return nil, fmt.Errorf("storage query_timeout must be positive, got %s", cfg.Storage.QueryTimeout)
	}

	return cfg, nil
}
