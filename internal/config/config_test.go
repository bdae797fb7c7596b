package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 3001, cfg.Server.Port)
				assert.Equal(t, "sqlite", cfg.Database.Driver)
				assert.Equal(t, "data/db.sqlite", cfg.Database.Path)
				assert.Equal(t, "data", cfg.Storage.DataDir)
				assert.Equal(t, 1500*time.Millisecond, cfg.Worker.PollInterval)
				assert.Equal(t, "http://localhost:3001", cfg.Worker.APIBaseURL)
				assert.Equal(t, ProviderCodex, cfg.Provider.Kind)
				assert.Equal(t, "pdf2md-api-service", cfg.App.Name)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 3001},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/db.sqlite",
		},
		Storage: StorageConfig{DataDir: "data"},
		Worker: WorkerConfig{
			PollInterval: 1500 * time.Millisecond,
			APIBaseURL:   "http://localhost:3001",
		},
		Provider: ProviderConfig{Kind: ProviderCodex},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "invalid server port",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "sqlite without path",
			mutate:    func(c *Config) { c.Database.Path = "" },
			wantErr:   true,
			errString: "database path is required",
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.Database.Driver = "postgres"
				c.Database.Port = 5432
				c.Database.Database = "jobs"
			},
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "unsupported driver",
			mutate:    func(c *Config) { c.Database.Driver = "mysql" },
			wantErr:   true,
			errString: "unsupported database driver",
		},
		{
			name:      "missing data dir",
			mutate:    func(c *Config) { c.Storage.DataDir = "" },
			wantErr:   true,
			errString: "data_dir is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid codex config",
			mutate: func(c *Config) {},
		},
		{
			name:   "empty provider kind defaults to codex",
			mutate: func(c *Config) { c.Provider.Kind = "" },
		},
		{
			name: "valid gemini config",
			mutate: func(c *Config) {
				c.Provider.Kind = ProviderGemini
				c.Provider.Gemini = GeminiConfig{Model: "gemini-1.5-flash", APIKeyEnv: "GEMINI_API_KEY"}
			},
		},
		{
			name:      "zero poll interval",
			mutate:    func(c *Config) { c.Worker.PollInterval = 0 },
			wantErr:   true,
			errString: "poll_interval must be greater than 0",
		},
		{
			name:      "missing api base url",
			mutate:    func(c *Config) { c.Worker.APIBaseURL = "" },
			wantErr:   true,
			errString: "api_base_url is required",
		},
		{
			name: "gemini without model",
			mutate: func(c *Config) {
				c.Provider.Kind = ProviderGemini
				c.Provider.Gemini = GeminiConfig{APIKeyEnv: "GEMINI_API_KEY"}
			},
			wantErr:   true,
			errString: "gemini model is required",
		},
		{
			name: "gemini without api key env",
			mutate: func(c *Config) {
				c.Provider.Kind = ProviderGemini
				c.Provider.Gemini = GeminiConfig{Model: "gemini-1.5-flash"}
			},
			wantErr:   true,
			errString: "api_key_env is required",
		},
		{
			name:      "unknown provider",
			mutate:    func(c *Config) { c.Provider.Kind = "llava" },
			wantErr:   true,
			errString: "unknown provider kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
