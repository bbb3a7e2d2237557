package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "ADHERENCE_SERVER_HOST"
	EnvServerPort              = "ADHERENCE_SERVER_PORT"
	EnvServerReadTimeout       = "ADHERENCE_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "ADHERENCE_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "ADHERENCE_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "ADHERENCE_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "ADHERENCE_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters. Timeouts are Go duration strings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Timeouts is the parsed form of the ServerConfig durations.
type Timeouts struct {
	Read       time.Duration
	ReadHeader time.Duration
	Write      time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Timeouts returns the configured durations. Only meaningful after Finalize.
func (c *ServerConfig) Timeouts() Timeouts {
	return Timeouts{
		Read:       duration(c.ReadTimeout),
		ReadHeader: duration(c.ReadHeaderTimeout),
		Write:      duration(c.WriteTimeout),
		Idle:       duration(c.IdleTimeout),
		Shutdown:   duration(c.ShutdownTimeout),
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for _, f := range []struct{ dst, src *string }{
		{&c.ReadTimeout, &overlay.ReadTimeout},
		{&c.ReadHeaderTimeout, &overlay.ReadHeaderTimeout},
		{&c.WriteTimeout, &overlay.WriteTimeout},
		{&c.IdleTimeout, &overlay.IdleTimeout},
		{&c.ShutdownTimeout, &overlay.ShutdownTimeout},
	} {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "1m"
	}
	if c.ReadHeaderTimeout == "" {
		c.ReadHeaderTimeout = "10s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "1m"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "2m"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *ServerConfig) loadEnv() {
	envString(EnvServerHost, &c.Host)
	envInt(EnvServerPort, &c.Port)
	envString(EnvServerReadTimeout, &c.ReadTimeout)
	envString(EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout)
	envString(EnvServerWriteTimeout, &c.WriteTimeout)
	envString(EnvServerIdleTimeout, &c.IdleTimeout)
	envString(EnvServerShutdownTimeout, &c.ShutdownTimeout)
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return errors.Join(
		positiveDuration("read_timeout", c.ReadTimeout),
		positiveDuration("read_header_timeout", c.ReadHeaderTimeout),
		positiveDuration("write_timeout", c.WriteTimeout),
		positiveDuration("idle_timeout", c.IdleTimeout),
		positiveDuration("shutdown_timeout", c.ShutdownTimeout),
	)
}
