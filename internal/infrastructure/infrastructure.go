// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, telemetry) that
// domain systems require.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/adherence/internal/config"
	"github.com/JaimeStill/adherence/internal/migrations"
	"github.com/JaimeStill/adherence/pkg/database"
	"github.com/JaimeStill/adherence/pkg/lifecycle"
	"github.com/JaimeStill/adherence/pkg/storage"
	"github.com/JaimeStill/adherence/pkg/telemetry"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, blob storage, and telemetry.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Telemetry telemetry.System

	logOutput io.Closer
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger, closer := NewLogger(&cfg.Logging)

	db, err := database.New(
		&cfg.Database,
		logger,
		database.WithMigrations(migrations.FS, migrations.Dir),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	tel, err := telemetry.New(lc.Context(), &cfg.Telemetry, cfg.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Telemetry: tel,
		logOutput: closer,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database, storage, and telemetry hooks are registered for startup and
// shutdown coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Telemetry.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("telemetry start failed: %w", err)
	}
	return nil
}

// Close releases the log file, if any. Call after lifecycle shutdown.
func (i *Infrastructure) Close() error {
	if i.logOutput == nil {
		return nil
	}
	return i.logOutput.Close()
}
