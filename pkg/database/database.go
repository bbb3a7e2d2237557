// Package database provides PostgreSQL connection management with lifecycle
// coordination, connect retries, and optional startup migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/adherence/pkg/lifecycle"
)

const retryBackoff = 500 * time.Millisecond

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Health returns ErrNotReady until startup has connected (and migrated,
	// when configured), then pings the pool.
	Health(ctx context.Context) error
}

// Option configures a database system.
type Option func(*database)

// WithMigrations applies the pending up migrations in dir within src once the
// connection is established. Config.AutoMigrate must also be set.
func WithMigrations(src fs.FS, dir string) Option {
	return func(d *database) {
		d.migrations = src
		d.migrationDir = dir
	}
}

type database struct {
	conn         *sql.DB
	logger       *slog.Logger
	connTimeout  time.Duration
	retries      int
	autoMigrate  bool
	migrations   fs.FS
	migrationDir string
	ready        atomic.Bool
}

// New creates a database system with the given configuration.
// It calls sql.Open to validate the DSN and configure pool parameters,
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (System, error) {
	db, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	d := &database{
		conn:        db,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
		retries:     cfg.ConnectRetries,
		autoMigrate: cfg.AutoMigrate,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Health(ctx context.Context) error {
	if !d.ready.Load() {
		return ErrNotReady
	}

	pingCtx, cancel := context.WithTimeout(ctx, d.connTimeout)
	defer cancel()
	return d.conn.PingContext(pingCtx)
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() {
		if err := d.connect(lc.Context()); err != nil {
			d.logger.Error("database ping failed", "attempts", d.retries+1, "error", err)
			return
		}
		d.logger.Info("database connection established")

		if d.autoMigrate && d.migrations != nil {
			version, err := Migrate(lc.Context(), d.conn, d.migrations, d.migrationDir)
			if err != nil {
				d.logger.Error("database migration failed", "error", err)
				return
			}
			d.logger.Info("database schema current", "version", version)
		}

		d.ready.Store(true)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.ready.Store(false)
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}

// connect pings until the database answers, retrying with doubling backoff.
func (d *database) connect(ctx context.Context) error {
	backoff := retryBackoff
	for attempt := 0; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, d.connTimeout)
		err := d.conn.PingContext(pingCtx)
		cancel()

		if err == nil || attempt >= d.retries {
			return err
		}

		d.logger.Warn("database ping failed, retrying", "attempt", attempt+1, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
