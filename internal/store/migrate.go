package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/civilsoul/offlined/schema"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql migrations/postgresql/*.sql
var migrationsFS embed.FS

// migrateUp brings the schema to the latest version. Called at Open.
func (s *Store) migrateUp() error {
	if s.disabled() {
		return nil
	}
	m, err := s.newMigrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// MigrateTo moves the schema to a specific version.
//   - targetVersion < 0 migrates to the latest version.
//   - targetVersion == 0 rolls back all migrations.
//   - targetVersion > 0 migrates to the specified version.
func (s *Store) MigrateTo(targetVersion int) (string, error) {
	if s.disabled() {
		return "", fmt.Errorf("migrations are not supported for the none backend")
	}

	m, err := s.newMigrator()
	if err != nil {
		return "", err
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return "", fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return "", fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return fmt.Sprintf("No migration needed. Database is already at version %d", currentVersion), nil
		}
		return "", fmt.Errorf("migration failed: %w", err)
	}

	newVersion, _, _ := m.Version()
	return fmt.Sprintf("Successfully migrated from version %d to version %d", currentVersion, newVersion), nil
}

// newMigrator builds a migrate instance over the embedded per-backend
// migration sources.
func (s *Store) newMigrator() (*migrate.Migrate, error) {
	var driver database.Driver
	var err error
	var dialectDir string

	switch s.backend {
	case schema.SQLiteBackend:
		dialectDir = "sqlite"
		driver, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	case schema.MySQLBackend:
		dialectDir = "mysql"
		driver, err = migratemysql.WithInstance(s.db, &migratemysql.Config{})
	case schema.PostgreSQLBackend:
		dialectDir = "postgresql"
		driver, err = migratepgx.WithInstance(s.db, &migratepgx.Config{})
	default:
		return nil, fmt.Errorf("unsupported backend: %s", s.backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", s.backend, err)
	}

	migrationFS, err := fs.Sub(migrationsFS, "migrations/"+dialectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "offlined", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
