package api

import (
	"time"

	"github.com/JaimeStill/adherence/internal/config"
	"github.com/JaimeStill/adherence/internal/infrastructure"
	"github.com/JaimeStill/adherence/internal/interactions"
	"github.com/JaimeStill/adherence/intervention"
	"github.com/JaimeStill/adherence/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination   pagination.Config
	Location     *time.Location
	Intervention intervention.Options
	Interactions interactions.Config
	MaxListSize  int32
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	loc := cfg.Intervention.Location()

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Telemetry: infra.Telemetry,
		},
		Pagination: cfg.API.Pagination,
		Location:   loc,
		Intervention: intervention.Options{
			ContinueAfterUnresolved: cfg.Intervention.ContinuesAfterUnresolved(),
			Location:                loc,
		},
		Interactions: interactions.Config{
			IdleTimeout:   cfg.Interactions.IdleTimeoutDuration(),
			SweepInterval: cfg.Interactions.SweepIntervalDuration(),
		},
		MaxListSize: cfg.Storage.MaxListSize,
	}
}
