// Package config loads the backtest application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

// Report formats.
const (
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Environment overrides.
const (
	EnvPostgresDSN   = "BACKTEST_POSTGRES_DSN"
	EnvClickHouseDSN = "BACKTEST_CLICKHOUSE_DSN"
	EnvLogLevel      = "BACKTEST_LOG_LEVEL"
	EnvWorkers       = "BACKTEST_WORKERS"
)

// Config represents the application configuration
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Run     RunConfig     `yaml:"run"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Report  ReportConfig  `yaml:"report"`
}

// StorageConfig selects the store backend.
// postgres keeps settings and ledgers in PostgreSQL; clickhouse additionally
// reads ticks and quotes from ClickHouse and writes PnL snapshots there.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

// RunConfig holds engine execution settings
type RunConfig struct {
	Workers int    `yaml:"workers"`
	Symbol  string `yaml:"symbol"` // default underlying for strategies that name none
	Verbose bool   `yaml:"verbose"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	FileEnabled   bool   `yaml:"file_enabled"`
	FilePath      string `yaml:"file_path"`
	RotationSize  int    `yaml:"rotation_size_mb"`
	RetentionDays int    `yaml:"retention_days"`
}

// MetricsConfig holds the Prometheus endpoint; empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// ReportConfig holds report output settings
type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Backend: BackendMemory},
		Run: RunConfig{
			Workers: 4,
			Symbol:  "NIFTY",
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "pretty",
			FilePath:      "logs",
			RotationSize:  50,
			RetentionDays: 14,
		},
		Report: ReportConfig{
			OutputDir: "reports",
			Format:    FormatMarkdown,
		},
	}
}

// Load loads configuration from a YAML file, then applies .env and
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvClickHouseDSN); v != "" {
		c.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Run.Workers = n
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn (or %s) is required for the postgres backend", EnvPostgresDSN)
		}
	case BackendClickHouse:
		if c.Storage.PostgresDSN == "" || c.Storage.ClickHouseDSN == "" {
			return fmt.Errorf("clickhouse backend needs both %s and %s", EnvPostgresDSN, EnvClickHouseDSN)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be at least 1")
	}
	if c.Logging.FileEnabled && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when file logging is enabled")
	}
	if c.Report.Format != FormatMarkdown && c.Report.Format != FormatCSV {
		return fmt.Errorf("report.format must be %s or %s", FormatMarkdown, FormatCSV)
	}
	return nil
}
