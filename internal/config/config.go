// Package config provides configuration management for the migration
// engine: the HTTP server it exposes, default connection-pool sizing
// for RDBMS adapters, and logging. Shape (YAML file + env overrides +
// Validate) follows the teacher's internal/config/config.go.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the engine's top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Pool    PoolConfig    `yaml:"pool"`
	Logging LoggingConfig `yaml:"logging"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// ServerConfig represents HTTP server configuration (spec.md §6 routes
// are served from here).
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
	DocsEnabled  bool   `yaml:"docs_enabled"`
}

// PoolConfig holds engine-wide connection-pool sizing, loaded from YAML
// and the environment and checked by Validate. Nothing outside this
// package reads it: the RDBMS adapters size their pools from their own
// rdbms.ConnConfig only.
type PoolConfig struct {
	MaxOpenConns    int `yaml:"max_open_conns"`
	MaxIdleConns    int `yaml:"max_idle_conns"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime"` // seconds
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // empty means stdout
}

// LimitsConfig carries engine-wide values for the session Metrics
// tunables (spec §3 "Metrics", §6 defaults), loaded from YAML and the
// environment. Sessions do not start from these: session.Registry.Create
// uses session.DefaultMetrics.
type LimitsConfig struct {
	BatchSizeIn       int64 `yaml:"batch_size_in"`
	BatchSizeOut      int64 `yaml:"batch_size_out"`
	ChunkSize         int64 `yaml:"chunk_size"`
	IncrementalSize   int64 `yaml:"incremental_size"`
	LobdataChannels   int   `yaml:"lobdata_channels"`
	PlaindataChannels int   `yaml:"plaindata_channels"`
}

// DefaultConfig returns a configuration with the spec's default values
// (spec §6: batch_size_in/out=1e6, chunk_size=1MiB, incremental_size=1e5,
// lobdata_channels/plaindata_channels=1).
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8081,
			ReadTimeout:  30,
			WriteTimeout: 30,
			DocsEnabled:  true,
		},
		Pool: PoolConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Limits: LimitsConfig{
			BatchSizeIn:       1_000_000,
			BatchSizeOut:      1_000_000,
			ChunkSize:         1 << 20,
			IncrementalSize:   100_000,
			LobdataChannels:   1,
			PlaindataChannels: 1,
		},
	}
}

// Load loads configuration from a YAML file and environment variables.
// Environment variables override file configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 -- path is from command-line argument, user-controlled input is expected
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DBRIEF_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("DBRIEF_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DBRIEF_DOCS_ENABLED"); v != "" {
		c.Server.DocsEnabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("DBRIEF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DBRIEF_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("DBRIEF_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("DBRIEF_POOL_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pool.MaxOpenConns = n
		}
	}
	if v := os.Getenv("DBRIEF_POOL_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pool.MaxIdleConns = n
		}
	}
	if v := os.Getenv("DBRIEF_BATCH_SIZE_IN"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Limits.BatchSizeIn = n
		}
	}
	if v := os.Getenv("DBRIEF_BATCH_SIZE_OUT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Limits.BatchSizeOut = n
		}
	}
	if v := os.Getenv("DBRIEF_CHUNK_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Limits.ChunkSize = n
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Pool.MaxOpenConns < 0 {
		return fmt.Errorf("invalid pool.max_open_conns: %d", c.Pool.MaxOpenConns)
	}
	if c.Pool.MaxIdleConns < 0 {
		return fmt.Errorf("invalid pool.max_idle_conns: %d", c.Pool.MaxIdleConns)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	if c.Limits.BatchSizeIn < 0 || c.Limits.BatchSizeOut < 0 || c.Limits.ChunkSize < 0 {
		return fmt.Errorf("limits must be non-negative")
	}

	return nil
}

// Address returns the server address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
