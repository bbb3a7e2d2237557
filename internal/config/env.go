package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env helpers overwrite dst only when the variable is set and parses.
// Unparseable values are left for validate to report against the file value.

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst **bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = &b
		}
	}
}

// duration parses s, returning zero for an empty or malformed value.
// Callers validate with positiveDuration during Finalize.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func positiveDuration(field, s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}
