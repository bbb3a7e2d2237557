package config

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	EnvLoggingLevel      = "ADHERENCE_LOG_LEVEL"
	EnvLoggingFormat     = "ADHERENCE_LOG_FORMAT"
	EnvLoggingFile       = "ADHERENCE_LOG_FILE"
	EnvLoggingMaxSizeMB  = "ADHERENCE_LOG_MAX_SIZE_MB"
	EnvLoggingMaxBackups = "ADHERENCE_LOG_MAX_BACKUPS"
	EnvLoggingMaxAgeDays = "ADHERENCE_LOG_MAX_AGE_DAYS"
)

// LoggingConfig controls log level, format, and optional file rotation.
// An empty File logs to stdout.
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// SlogLevel returns Level as a slog.Level.
func (c *LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LoggingConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.File != "" {
		c.File = overlay.File
	}
	if overlay.MaxSizeMB != 0 {
		c.MaxSizeMB = overlay.MaxSizeMB
	}
	if overlay.MaxBackups != 0 {
		c.MaxBackups = overlay.MaxBackups
	}
	if overlay.MaxAgeDays != 0 {
		c.MaxAgeDays = overlay.MaxAgeDays
	}
}

func (c *LoggingConfig) loadDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 28
	}
}

func (c *LoggingConfig) loadEnv() {
	envString(EnvLoggingLevel, &c.Level)
	envString(EnvLoggingFormat, &c.Format)
	envString(EnvLoggingFile, &c.File)
	envInt(EnvLoggingMaxSizeMB, &c.MaxSizeMB)
	envInt(EnvLoggingMaxBackups, &c.MaxBackups)
	envInt(EnvLoggingMaxAgeDays, &c.MaxAgeDays)
}

func (c *LoggingConfig) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("invalid level %q", c.Level)
	}
	c.Format = strings.ToLower(c.Format)
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("invalid format %q: want text or json", c.Format)
	}
	if c.MaxSizeMB < 1 {
		return fmt.Errorf("max_size_mb must be positive")
	}
	return nil
}
