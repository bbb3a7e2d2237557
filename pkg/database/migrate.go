package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate applies the pending up migrations in dir within src over a
// dedicated connection from db and returns the resulting schema version.
// The pool itself stays open.
func Migrate(ctx context.Context, db *sql.DB, src fs.FS, dir string) (uint, error) {
	source, err := iofs.New(src, dir)
	if err != nil {
		return 0, fmt.Errorf("migration source: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		source.Close()
		return 0, fmt.Errorf("migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		source.Close()
		conn.Close()
		return 0, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		source.Close()
		driver.Close()
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return version, err
}
