package config

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/adherence/pkg/middleware"
	"github.com/JaimeStill/adherence/pkg/pagination"
)

// EnvAPIBasePath overrides the prefix the API module mounts under.
const EnvAPIBasePath = "ADHERENCE_API_BASE_PATH"

var corsEnv = &middleware.CORSEnv{
	Enabled:          "ADHERENCE_CORS_ENABLED",
	Origins:          "ADHERENCE_CORS_ORIGINS",
	AllowedMethods:   "ADHERENCE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "ADHERENCE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "ADHERENCE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "ADHERENCE_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "ADHERENCE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "ADHERENCE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, and pagination settings.
type APIConfig struct {
	BasePath   string                `toml:"base_path"`
	CORS       middleware.CORSConfig `toml:"cors"`
	Pagination pagination.Config     `toml:"pagination"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if !strings.HasPrefix(c.BasePath, "/") || c.BasePath == "/" {
		return fmt.Errorf("base_path %q must start with / and name a prefix", c.BasePath)
	}
	c.BasePath = strings.TrimSuffix(c.BasePath, "/")

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
}

func (c *APIConfig) loadEnv() {
	envString(EnvAPIBasePath, &c.BasePath)
}
