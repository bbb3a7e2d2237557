package config

import (
	"fmt"
	"time"
)

const (
	EnvInterventionTimezone                = "ADHERENCE_TIMEZONE"
	EnvInterventionContinueAfterUnresolved = "ADHERENCE_CONTINUE_AFTER_UNRESOLVED"
	EnvInteractionsIdleTimeout             = "ADHERENCE_INTERACTIONS_IDLE_TIMEOUT"
	EnvInteractionsSweepInterval           = "ADHERENCE_INTERACTIONS_SWEEP_INTERVAL"
)

// InterventionConfig tunes the dialogue. Timezone stamps session times and
// identifiers.
type InterventionConfig struct {
	Timezone                string `toml:"timezone"`
	ContinueAfterUnresolved *bool  `toml:"continue_after_unresolved"`
}

// Location loads Timezone. Finalize has already verified it resolves.
func (c *InterventionConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ContinuesAfterUnresolved reports whether an unresolved medication moves on
// to the next one instead of ending the medication questions.
func (c *InterventionConfig) ContinuesAfterUnresolved() bool {
	return c.ContinueAfterUnresolved != nil && *c.ContinueAfterUnresolved
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *InterventionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *InterventionConfig) Merge(overlay *InterventionConfig) {
	if overlay.Timezone != "" {
		c.Timezone = overlay.Timezone
	}
	if overlay.ContinueAfterUnresolved != nil {
		c.ContinueAfterUnresolved = overlay.ContinueAfterUnresolved
	}
}

func (c *InterventionConfig) loadDefaults() {
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	if c.ContinueAfterUnresolved == nil {
		v := false
		c.ContinueAfterUnresolved = &v
	}
}

func (c *InterventionConfig) loadEnv() {
	envString(EnvInterventionTimezone, &c.Timezone)
	envBool(EnvInterventionContinueAfterUnresolved, &c.ContinueAfterUnresolved)
}

func (c *InterventionConfig) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	return nil
}

// InteractionsConfig bounds how long in-progress dialogues are held.
type InteractionsConfig struct {
	IdleTimeout   string `toml:"idle_timeout"`
	SweepInterval string `toml:"sweep_interval"`
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *InteractionsConfig) IdleTimeoutDuration() time.Duration {
	return duration(c.IdleTimeout)
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *InteractionsConfig) SweepIntervalDuration() time.Duration {
	return duration(c.SweepInterval)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *InteractionsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *InteractionsConfig) Merge(overlay *InteractionsConfig) {
	if overlay.IdleTimeout != "" {
		c.IdleTimeout = overlay.IdleTimeout
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
}

func (c *InteractionsConfig) loadDefaults() {
	if c.IdleTimeout == "" {
		c.IdleTimeout = "30m"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
}

func (c *InteractionsConfig) loadEnv() {
	envString(EnvInteractionsIdleTimeout, &c.IdleTimeout)
	envString(EnvInteractionsSweepInterval, &c.SweepInterval)
}

func (c *InteractionsConfig) validate() error {
	if err := positiveDuration("idle_timeout", c.IdleTimeout); err != nil {
		return err
	}
	return positiveDuration("sweep_interval", c.SweepInterval)
}
