package snapshot

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/cohortstats/schema"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// MigrationResult describes what a migration run did.
type MigrationResult struct {
	From    uint
	To      uint
	Changed bool
}

// String renders the result the way the CLI reports it.
func (r MigrationResult) String() string {
	if !r.Changed {
		return fmt.Sprintf("No migration needed. Snapshot is already at version %d", r.To)
	}
	return fmt.Sprintf("Successfully migrated from version %d to version %d", r.From, r.To)
}

// Migrate runs schema migrations on the store.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func (s *Store) Migrate(targetVersion int) (MigrationResult, error) {
	db := s.db
	if s.backend == schema.MySQLBackend {
		// MySQL migrations hold several statements per file
		var err error
		db, err = openDB(s.backend, s.connStr, true)
		if err != nil {
			return MigrationResult{}, err
		}
		defer func() { _ = db.Close() }()
	}

	m, err := newMigrate(s.backend, db)
	if err != nil {
		return MigrationResult{}, err
	}
	return runMigration(m, targetVersion)
}

// newMigrate builds a migrate instance over the embedded migrations of the backend.
// The instance is never closed because closing it would close db.
func newMigrate(backend schema.DatabaseBackend, db *sql.DB) (*migrate.Migrate, error) {
	var driver database.Driver
	var err error
	switch backend {
	case schema.SQLiteBackend:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case schema.MySQLBackend:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	// Get the migrations subdirectory
	migrationFS, err := fs.Sub(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}

	// Create source driver from embedded FS
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "cohortstats", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func runMigration(m *migrate.Migrate, targetVersion int) (MigrationResult, error) {
	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return MigrationResult{}, fmt.Errorf("snapshot is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	result := MigrationResult{From: currentVersion}
	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return result, fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
	}

	result.Changed = err == nil
	newVersion, _, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to read migration version: %w", verr)
	}
	result.To = newVersion
	return result, nil
}

// SchemaVersion returns the applied migration version and its dirty flag.
// A snapshot without migrations reports version 0.
func (s *Store) SchemaVersion(ctx context.Context) (uint, bool, error) {
	records, err := s.selectRows(ctx, "SELECT version, dirty FROM schema_migrations")
	if err != nil || len(records) == 0 {
		// No migrations table yet
		return 0, false, nil
	}
	version, err := records[0].Int64("version")
	if err != nil {
		return 0, false, err
	}
	return uint(version), records[0].Bool("dirty"), nil
}
