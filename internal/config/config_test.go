package config

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Limits.BatchSizeIn != 1_000_000 {
		t.Errorf("Expected batch_size_in 1000000, got %d", cfg.Limits.BatchSizeIn)
	}
	if cfg.Limits.ChunkSize != 1<<20 {
		t.Errorf("Expected chunk_size 1MiB, got %d", cfg.Limits.ChunkSize)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid default",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name: "invalid port zero",
			cfg: &Config{
				Server:  ServerConfig{Port: 0},
				Logging: LoggingConfig{Level: "info", Format: "json"},
			},
			wantErr: true,
		},
		{
			name: "invalid port too high",
			cfg: &Config{
				Server:  ServerConfig{Port: 70000},
				Logging: LoggingConfig{Level: "info", Format: "json"},
			},
			wantErr: true,
		},
		{
			name: "invalid logging level",
			cfg: &Config{
				Server:  ServerConfig{Port: 8081},
				Logging: LoggingConfig{Level: "verbose", Format: "json"},
			},
			wantErr: true,
		},
		{
			name: "invalid logging format",
			cfg: &Config{
				Server:  ServerConfig{Port: 8081},
				Logging: LoggingConfig{Level: "info", Format: "xml"},
			},
			wantErr: true,
		},
		{
			name: "negative pool size",
			cfg: &Config{
				Server:  ServerConfig{Port: 8081},
				Pool:    PoolConfig{MaxOpenConns: -1},
				Logging: LoggingConfig{Level: "info", Format: "json"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 9090,
		},
	}

	addr := cfg.Address()
	if addr != "localhost:9090" {
		t.Errorf("Expected localhost:9090, got %s", addr)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	os.Setenv("DBRIEF_HOST", "127.0.0.1")
	os.Setenv("DBRIEF_PORT", "9999")
	os.Setenv("DBRIEF_LOG_LEVEL", "debug")
	os.Setenv("DBRIEF_CHUNK_SIZE", "2048")
	defer func() {
		os.Unsetenv("DBRIEF_HOST")
		os.Unsetenv("DBRIEF_PORT")
		os.Unsetenv("DBRIEF_LOG_LEVEL")
		os.Unsetenv("DBRIEF_CHUNK_SIZE")
	}()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Limits.ChunkSize != 2048 {
		t.Errorf("Expected chunk_size 2048, got %d", cfg.Limits.ChunkSize)
	}
}
