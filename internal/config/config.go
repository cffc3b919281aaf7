package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	// Storage configuration
	Storage StorageConfig `env:"STORAGE"`

	// Schema registry configuration
	Schemas SchemaConfig `env:"SCHEMAS"`

	// Tenant configuration
	Tenants TenantConfig `env:"TENANTS"`

	// Logging configuration
	Logging LoggingConfig `env:"LOGGING"`

	// Metrics configuration
	Metrics MetricsConfig `env:"METRICS"`
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	// Backend selects the storage backend: "memory" or "pebble"
	Backend string `env:"BACKEND" envDefault:"memory"`

	// Data directory path (pebble backend)
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
}

// SchemaConfig holds schema registry configuration
type SchemaConfig struct {
	// Dir is a directory of schema JSON documents to load instead of
	// the embedded defaults (empty = use embedded defaults)
	Dir string `env:"DIR" envDefault:""`
}

// TenantConfig holds tenant-related configuration
type TenantConfig struct {
	// DefaultMaxUsers caps users per tenant (0 = unlimited)
	DefaultMaxUsers int `env:"DEFAULT_MAX_USERS" envDefault:"0"`

	// DefaultMaxGroups caps groups per tenant (0 = unlimited)
	DefaultMaxGroups int `env:"DEFAULT_MAX_GROUPS" envDefault:"0"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	// Log level: "debug", "info", "warn", "error"
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Log format: "json", "text"
	Format string `env:"LOG_FORMAT" envDefault:"json"`

	// Log file path (empty for stdout)
	Output string `env:"LOG_OUTPUT" envDefault:""`

	// Enable log rotation
	Rotation bool `env:"LOG_ROTATION" envDefault:"true"`

	// Max log file size in MB
	MaxSize int `env:"LOG_MAX_SIZE" envDefault:"100"`

	// Number of backup files to keep
	MaxBackups int `env:"LOG_MAX_BACKUPS" envDefault:"7"`

	// Max age in days
	MaxAge int `env:"LOG_MAX_AGE" envDefault:"30"`
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	// Enable Prometheus metrics
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load loads configuration from environment variables with the IDENTRA_ prefix
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "IDENTRA_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RegisterFlags registers command-line flag overrides on the given flag set
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Storage.Backend, "storage-backend", c.Storage.Backend, "storage backend (memory or pebble)")
	fs.StringVar(&c.Storage.DataDir, "data-dir", c.Storage.DataDir, "data directory for the pebble backend")
	fs.StringVar(&c.Schemas.Dir, "schema-dir", c.Schemas.Dir, "directory of schema documents (empty for embedded defaults)")
	fs.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "log level")
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "pebble":
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory or pebble)", c.Storage.Backend)
	}

	if c.Storage.Backend == "pebble" && c.Storage.DataDir == "" {
		return fmt.Errorf("data directory required for pebble backend")
	}

	if c.Schemas.Dir != "" {
		info, err := os.Stat(c.Schemas.Dir)
		if err != nil {
			return fmt.Errorf("schema directory %s: %w", c.Schemas.Dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("schema directory %s is not a directory", c.Schemas.Dir)
		}
	}

	if c.Tenants.DefaultMaxUsers < 0 {
		return fmt.Errorf("default max users cannot be negative")
	}
	if c.Tenants.DefaultMaxGroups < 0 {
		return fmt.Errorf("default max groups cannot be negative")
	}

	return nil
}

// EnsureDataDir creates the data directory if it does not exist
func (c *Config) EnsureDataDir() error {
	if c.Storage.Backend != "pebble" {
		return nil
	}
	return os.MkdirAll(filepath.Clean(c.Storage.DataDir), 0755)
}
