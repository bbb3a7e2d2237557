package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls metric and trace export. Output is "stdout" or a file path
// rotated with lumberjack.
type Config struct {
	Enabled     *bool  `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Output      string `toml:"output"`
	Interval    string `toml:"interval"`
	Traces      *bool  `toml:"traces"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled     string
	ServiceName string
	Output      string
	Interval    string
	Traces      string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
	if overlay.Output != "" {
		c.Output = overlay.Output
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.Traces != nil {
		c.Traces = overlay.Traces
	}
}

// IsEnabled reports whether telemetry is exported.
func (c *Config) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// TracesEnabled reports whether spans are exported alongside metrics.
func (c *Config) TracesEnabled() bool {
	return c.IsEnabled() && c.Traces != nil && *c.Traces
}

// IntervalDuration returns Interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

func (c *Config) loadDefaults() {
	if c.Enabled == nil {
		enabled := false
		c.Enabled = &enabled
	}
	if c.ServiceName == "" {
		c.ServiceName = "adherence"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	if c.Interval == "" {
		c.Interval = "30s"
	}
	if c.Traces == nil {
		traces := false
		c.Traces = &traces
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = &b
			}
		}
	}
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
	if env.Output != "" {
		if v := os.Getenv(env.Output); v != "" {
			c.Output = v
		}
	}
	if env.Interval != "" {
		if v := os.Getenv(env.Interval); v != "" {
			c.Interval = v
		}
	}
	if env.Traces != "" {
		if v := os.Getenv(env.Traces); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Traces = &b
			}
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name required")
	}
	return nil
}
