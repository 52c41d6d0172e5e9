package migrations

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RunPostgres applies all pending embedded PostgreSQL migrations against
// the database at databaseURL.
func RunPostgres(databaseURL string) error {
	src, err := iofs.New(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("load embedded postgres migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply postgres migrations: %w", err)
	}
	return nil
}

// RollbackPostgres rolls back the most recent migration.
func RollbackPostgres(databaseURL string) error {
	src, err := iofs.New(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("load embedded postgres migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback postgres migration: %w", err)
	}
	return nil
}
