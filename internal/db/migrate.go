package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/globaltrotters/apiserver/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies schema migrations bundled into the binary. steps > 0
// applies that many up, steps < 0 rolls that many back, and steps == 0
// migrates all the way up.
func Migrate(cfg config.DatabaseConfig, steps int) error {
	return withMigrator(cfg, func(m *migrate.Migrate) error {
		if steps == 0 {
			return m.Up()
		}
		return m.Steps(steps)
	})
}

// Reset rolls every migration back.
func Reset(cfg config.DatabaseConfig) error {
	return withMigrator(cfg, func(m *migrate.Migrate) error { return m.Down() })
}

// Version reports the applied schema version and whether the last run failed
// half way.
func Version(cfg config.DatabaseConfig) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := withMigrator(cfg, func(m *migrate.Migrate) error {
		var err error
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

func withMigrator(cfg config.DatabaseConfig, apply func(*migrate.Migrate) error) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.PostgresURL())
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := apply(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
