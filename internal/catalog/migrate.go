package catalog

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// MigrateUp runs all pending migrations up to the latest version.
// Returns nil if no migrations were needed.
func (c *Catalog) MigrateUp(migrationsDir string) error {
	m, err := c.newMigrate(migrationsDir)
	if err != nil {
		return err
	}
	// Not closed: closing would take the underlying DB connection with it.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (c *Catalog) MigrateDown(migrationsDir string) error {
	m, err := c.newMigrate(migrationsDir)
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (c *Catalog) MigrateVersion(migrationsDir string) (version uint, dirty bool, err error) {
	m, err := c.newMigrate(migrationsDir)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = m.Version()
	if err != nil && errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// MigrateForce forces the migration version to a specific value. Use only
// to recover from a dirty state.
func (c *Catalog) MigrateForce(migrationsDir string, version int) error {
	m, err := c.newMigrate(migrationsDir)
	if err != nil {
		return err
	}

	if err := m.Force(version); err != nil {
		return fmt.Errorf("force migration to version %d failed: %w", version, err)
	}
	return nil
}

// MigrationStatus summarizes the migration state for the status command
// and the config endpoint.
func (c *Catalog) MigrationStatus(migrationsDir string) (map[string]any, error) {
	version, dirty, err := c.MigrateVersion(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}

	var tableExists bool
	err = c.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_migrations'
	`).Scan(&tableExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_migrations table: %w", err)
	}

	return map[string]any{
		"current_version":          version,
		"dirty":                    dirty,
		"schema_migrations_exists": tableExists,
	}, nil
}

// newMigrate creates a migrate instance bound to this database.
func (c *Catalog) newMigrate(migrationsDir string) (*migrate.Migrate, error) {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(c.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", absPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{logger: logrus.WithField("tag", "migrate")}
	return m, nil
}

// migrateLogger adapts logrus to the migrate.Logger interface.
type migrateLogger struct {
	logger logrus.FieldLogger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }
