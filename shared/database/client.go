package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// schema creates the jobs table on first start. The statement is shared by
// both drivers, so only portable column types are used.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	original_file_name TEXT NOT NULL,
	total_pages INTEGER,
	current_page INTEGER NOT NULL DEFAULT 0,
	progress REAL NOT NULL DEFAULT 0,
	result_path TEXT,
	error_message TEXT
)`

// Config holds job store connection configuration. Path is used by the
// sqlite driver; the host/port/credential fields by postgres.
type Config struct {
	Driver          string
	Path            string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Client wraps the sqlx handle for the job store.
type Client struct {
	db     *sqlx.DB
	config *Config
	logger *slog.Logger
}

// NewClient opens the job store, verifies the connection and bootstraps the
// jobs table.
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	driver, dsn, err := resolveDSN(config)
	if err != nil {
		return nil, err
	}

	logger.Info("Connecting to job store",
		slog.String("driver", driver),
	)

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to job store: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping job store: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}

	logger.Info("Job store ready",
		slog.String("driver", driver),
	)

	return &Client{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// resolveDSN maps the config to a driver name and data source string.
func resolveDSN(config *Config) (string, string, error) {
	switch config.Driver {
	case DriverSQLite, "":
		if config.Path == "" {
			return "", "", fmt.Errorf("sqlite driver requires a database path")
		}
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
			return "", "", fmt.Errorf("failed to create database directory: %w", err)
		}
		// Serialize writers; sqlite allows only one at a time anyway.
		return DriverSQLite, "file:" + config.Path + "?_pragma=busy_timeout(5000)", nil
	case DriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			config.Host,
			config.Port,
			config.User,
			config.Password,
			config.Database,
			config.SSLMode,
		)
		return DriverPostgres, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver: %q", config.Driver)
	}
}

// GetDB returns the underlying sqlx.DB instance
func (c *Client) GetDB() *sqlx.DB {
	return c.db
}

// Ping checks the job store connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the job store connection
func (c *Client) Close() error {
	c.logger.Info("Closing job store connection")

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close job store connection",
				slog.Any("error", err),
			)
			return err
		}
	}
	return nil
}

// HealthCheck verifies the store answers a trivial query.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var result int
	if err := c.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("job store health check failed: %w", err)
	}
	return nil
}
