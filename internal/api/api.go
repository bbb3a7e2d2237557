// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/adherence/internal/config"
	"github.com/JaimeStill/adherence/internal/infrastructure"
	"github.com/JaimeStill/adherence/pkg/middleware"
	"github.com/JaimeStill/adherence/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The interaction sweeper is registered with the lifecycle coordinator.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, fmt.Errorf("create domain: %w", err)
	}

	if err := domain.Interactions.Start(runtime.Lifecycle); err != nil {
		return nil, fmt.Errorf("start interactions: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	telemetry, err := middleware.Telemetry(
		runtime.Telemetry.MeterProvider(),
		runtime.Telemetry.TracerProvider(),
	)
	if err != nil {
		return nil, fmt.Errorf("create telemetry middleware: %w", err)
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.RequestID())
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(telemetry)
	m.Use(middleware.CORS(&cfg.API.CORS))

	return m, nil
}
