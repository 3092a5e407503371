// Package config loads settings from an optional YAML file, then applies
// NFE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Processing ProcessingConfig `yaml:"processing"`
	Export     ExportConfig     `yaml:"export"`
	Storage    StorageConfig    `yaml:"storage"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Debug        bool          `yaml:"debug"`
}

// DatabaseConfig selects durable storage. An empty DSN keeps the dataset
// in memory only.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

// Enabled reports whether a database is configured
func (c DatabaseConfig) Enabled() bool {
	return c.DSN != ""
}

// ProcessingConfig tunes batch ingestion
type ProcessingConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ExportConfig sets where workbooks are written
type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Upload bool   `yaml:"upload"`
}

// StorageConfig holds S3-compatible object storage settings for exports
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// Enabled reports whether object storage is configured
func (c StorageConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Processing: ProcessingConfig{
			MaxConcurrency: 4,
			Timeout:        2 * time.Minute,
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Storage: StorageConfig{
			Prefix: "exports",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = getEnv("NFE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("NFE_LOG_FORMAT", cfg.Log.Format)

	cfg.Server.Address = getEnv("NFE_SERVER_ADDRESS", cfg.Server.Address)
	cfg.Server.Debug = getEnvBool("NFE_SERVER_DEBUG", cfg.Server.Debug)

	cfg.Database.Driver = getEnv("NFE_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("NFE_DB_DSN", cfg.Database.DSN)

	cfg.Processing.MaxConcurrency = getEnvInt("NFE_MAX_CONCURRENCY", cfg.Processing.MaxConcurrency)

	cfg.Export.Dir = getEnv("NFE_EXPORT_DIR", cfg.Export.Dir)
	cfg.Export.Upload = getEnvBool("NFE_EXPORT_UPLOAD", cfg.Export.Upload)

	cfg.Storage.Endpoint = getEnv("NFE_MINIO_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = getEnv("NFE_MINIO_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = getEnv("NFE_MINIO_SECRET_KEY", cfg.Storage.SecretKey)
	cfg.Storage.Bucket = getEnv("NFE_MINIO_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.UseSSL = getEnvBool("NFE_MINIO_USE_SSL", cfg.Storage.UseSSL)
}

// Validate checks enumerated values and limits
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}
	if c.Processing.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.Processing.MaxConcurrency)
	}
	if c.Export.Upload && !c.Storage.Enabled() {
		return fmt.Errorf("export upload requires a storage endpoint")
	}
	if c.Storage.Enabled() && c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required when an endpoint is set")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
