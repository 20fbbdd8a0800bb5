package iocache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	mysqlmigrate "github.com/golang-migrate/migrate/v4/database/mysql"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations brings the schema up to the latest embedded migration. mysql and
// postgres go through golang-migrate, whose drivers for both backends
// (go-sql-driver/mysql, jackc/pgx/v5) match the rest of this module's
// stack. golang-migrate's only sqlite driver wraps mattn/go-sqlite3, a cgo
// dependency this module does not carry, so sqlite applies the same
// embedded SQL directly via database/sql instead of through migrate.
func runMigrations(ctx context.Context, db *sql.DB, backend Backend) error {
	if backend == BackendSQLite {
		return migrateSQLiteDirect(ctx, db)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iocache: load embedded migrations: %w", err)
	}

	var dbDriver database.Driver
	switch backend {
	case BackendMySQL:
		dbDriver, err = mysqlmigrate.WithInstance(db, &mysqlmigrate.Config{})
	case BackendPostgres:
		dbDriver, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	default:
		return fmt.Errorf("iocache: migrate: unsupported backend %q", backend)
	}
	if err != nil {
		return fmt.Errorf("iocache: build migrate driver for %s: %w", backend, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(backend), dbDriver)
	if err != nil {
		return fmt.Errorf("iocache: build migrator for %s: %w", backend, err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("iocache: migrate %s up: %w", backend, err)
	}
	return nil
}

func migrateSQLiteDirect(ctx context.Context, db *sql.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iocache: read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || len(entry.Name()) < 6 || entry.Name()[len(entry.Name())-6:] != "up.sql" {
			continue
		}
		body, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("iocache: read migration %s: %w", entry.Name(), err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("iocache: apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}
