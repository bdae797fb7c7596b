package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yuki-noguchi/pdf-to-markdown/shared/database"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Conversion provider kinds
const (
	ProviderCodex  = "codex"
	ProviderGemini = "gemini"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Worker   WorkerConfig   `yaml:"worker"`
	Provider ProviderConfig `yaml:"provider"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds job store configuration. The sqlite driver only
// needs Path; the postgres driver uses the connection fields.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Path            string        `yaml:"path"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// StorageConfig holds the on-disk artifact layout configuration
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	APIBaseURL       string        `yaml:"api_base_url"`
	ReadinessTimeout time.Duration `yaml:"readiness_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig selects and configures the conversion provider
type ProviderConfig struct {
	Kind   string       `yaml:"kind"`
	Codex  CodexConfig  `yaml:"codex"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// CodexConfig holds settings for the subprocess provider
type CodexConfig struct {
	Binary string `yaml:"binary"`
}

// GeminiConfig holds settings for the in-process Gemini provider. The API
// key is read from the environment variable named by APIKeyEnv, never from
// the config file itself.
type GeminiConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// ValidateAPIConfig checks the fields the API service depends on
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}

	return nil
}

// ValidateWorkerConfig checks the fields the worker service depends on
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker poll_interval must be greater than 0")
	}

	if c.Worker.APIBaseURL == "" {
		return fmt.Errorf("worker api_base_url is required")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	switch c.Provider.Kind {
	case ProviderCodex, "":
		// subprocess provider needs nothing beyond PATH
	case ProviderGemini:
		if c.Provider.Gemini.Model == "" {
			return fmt.Errorf("provider gemini model is required")
		}
		if c.Provider.Gemini.APIKeyEnv == "" {
			return fmt.Errorf("provider gemini api_key_env is required")
		}
	default:
		return fmt.Errorf("unknown provider kind: %q", c.Provider.Kind)
	}

	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case database.DriverSQLite, "":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	case database.DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	return nil
}

// DatabaseClientConfig maps the YAML database section onto the store client
func (c *Config) DatabaseClientConfig() *database.Config {
	return &database.Config{
		Driver:          c.Database.Driver,
		Path:            c.Database.Path,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Database,
		SSLMode:         c.Database.SSLMode,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}
