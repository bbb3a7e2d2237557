// Package config loads service configuration from TOML files and environment
// variables. Each section finalizes in three phases: defaults, environment
// overrides, validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/adherence/pkg/database"
	"github.com/JaimeStill/adherence/pkg/storage"
	"github.com/JaimeStill/adherence/pkg/telemetry"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvAdherenceEnv             = "ADHERENCE_ENV"
	EnvAdherenceShutdownTimeout = "ADHERENCE_SHUTDOWN_TIMEOUT"
	EnvAdherenceVersion         = "ADHERENCE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "ADHERENCE_DB_HOST",
	Port:            "ADHERENCE_DB_PORT",
	Name:            "ADHERENCE_DB_NAME",
	User:            "ADHERENCE_DB_USER",
	Password:        "ADHERENCE_DB_PASSWORD",
	SSLMode:         "ADHERENCE_DB_SSL_MODE",
	MaxOpenConns:    "ADHERENCE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "ADHERENCE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "ADHERENCE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "ADHERENCE_DB_CONN_TIMEOUT",
	ConnectRetries:  "ADHERENCE_DB_CONNECT_RETRIES",
	AutoMigrate:     "ADHERENCE_DB_AUTO_MIGRATE",
}

var storageEnv = &storage.Env{
	ContainerName:    "ADHERENCE_STORAGE_CONTAINER_NAME",
	ConnectionString: "ADHERENCE_STORAGE_CONNECTION_STRING",
	AccountURL:       "ADHERENCE_STORAGE_ACCOUNT_URL",
	MaxListSize:      "ADHERENCE_STORAGE_MAX_LIST_SIZE",
}

var telemetryEnv = &telemetry.Env{
	Enabled:     "ADHERENCE_TELEMETRY_ENABLED",
	ServiceName: "ADHERENCE_TELEMETRY_SERVICE_NAME",
	Output:      "ADHERENCE_TELEMETRY_OUTPUT",
	Interval:    "ADHERENCE_TELEMETRY_INTERVAL",
	Traces:      "ADHERENCE_TELEMETRY_TRACES",
}

// Config is the root configuration for the adherence service.
type Config struct {
	Server          ServerConfig       `toml:"server"`
	Database        database.Config    `toml:"database"`
	Storage         storage.Config     `toml:"storage"`
	API             APIConfig          `toml:"api"`
	Logging         LoggingConfig      `toml:"logging"`
	Telemetry       telemetry.Config   `toml:"telemetry"`
	Intervention    InterventionConfig `toml:"intervention"`
	Interactions    InteractionsConfig `toml:"interactions"`
	ShutdownTimeout string             `toml:"shutdown_timeout"`
	Version         string             `toml:"version"`
}

// Env returns the ADHERENCE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvAdherenceEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load reads config.toml from the working directory. See LoadFrom.
func Load() (*Config, error) {
	return LoadFrom(BaseConfigFile)
}

// LoadFrom reads the base config at path (if present), applies the
// config.<ADHERENCE_ENV>.toml overlay beside it, and finalizes all values. If
// no base file exists, defaults and environment variables provide all
// configuration.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if overlay := overlayPath(filepath.Dir(path)); overlay != "" {
		loaded, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(loaded)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Logging.Merge(&overlay.Logging)
	c.Telemetry.Merge(&overlay.Telemetry)
	c.Intervention.Merge(&overlay.Intervention)
	c.Interactions.Merge(&overlay.Interactions)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Finalize(telemetryEnv); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.Intervention.Finalize(); err != nil {
		return fmt.Errorf("intervention: %w", err)
	}
	if err := c.Interactions.Finalize(); err != nil {
		return fmt.Errorf("interactions: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	envString(EnvAdherenceShutdownTimeout, &c.ShutdownTimeout)
	envString(EnvAdherenceVersion, &c.Version)
}

func (c *Config) validate() error {
	return positiveDuration("shutdown_timeout", c.ShutdownTimeout)
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvAdherenceEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
