// Package iocache implements the optional durable CacheStore backends for
// the Analytics Engine's result cache: sqlite, mysql, and postgresql,
// selected by the engine.cache_backend config key. The in-process LRU in
// engine is always active; this package is only consulted when
// engine.cache_backend names a backend other than none.
package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver, registered as "pgx"
	_ "modernc.org/sqlite"             // pure-Go sqlite driver, registered as "sqlite"

	"github.com/gitbeacon/beacon/internal/contract"
)

// Backend is the closed set of supported durable cache backends.
type Backend string

// Recognized backends.
const (
	BackendSQLite Backend = "sqlite"
	BackendMySQL  Backend = "mysql"
	BackendPostgres Backend = "postgres"
	BackendNone   Backend = "none"
)

const tableName = "beacon_cache"

// Store is a contract.CacheStore backed by database/sql. It is safe for
// concurrent use: the underlying *sql.DB pools its own connections.
type Store struct {
	db      *sql.DB
	backend Backend
}

var _ contract.CacheStore = (*Store)(nil)

// Open connects to the given backend, migrates the schema, and returns a
// ready-to-use Store. connStr is backend-specific: a file path for sqlite,
// a DSN "user:pass@tcp(host:port)/db" for mysql, or a libpq keyword string
// for postgres.
func Open(ctx context.Context, backend Backend, connStr string) (*Store, error) {
	if backend == BackendNone {
		return nil, fmt.Errorf("iocache: backend \"none\" has no store; callers should skip Open entirely")
	}

	driverName, dsn, err := driverAndDSN(backend, connStr)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("iocache: open %s: %w", backend, err)
	}
	if backend == BackendSQLite {
		// modernc.org/sqlite serializes writes at the driver level; a single
		// connection avoids "database is locked" errors under concurrent use.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("iocache: ping %s: %w", backend, err)
	}

	if err := runMigrations(ctx, db, backend); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, backend: backend}, nil
}

func driverAndDSN(backend Backend, connStr string) (driverName, dsn string, err error) {
	switch backend {
	case BackendSQLite:
		return "sqlite", connStr, nil
	case BackendMySQL:
		return "mysql", connStr, nil
	case BackendPostgres:
		return "pgx", connStr, nil
	default:
		return "", "", fmt.Errorf("iocache: unsupported backend %q", backend)
	}
}

// Get implements contract.CacheStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf("SELECT cache_value FROM %s WHERE cache_key = %s", tableName, s.placeholder(1))
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("iocache: get %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Set implements contract.CacheStore, upserting the (key, value) pair.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	query := s.upsertQuery()
	_, err := s.db.ExecContext(ctx, query, key, string(value), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("iocache: set %q: %w", key, err)
	}
	return nil
}

// Close implements contract.CacheStore.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) placeholder(n int) string {
	if s.backend == BackendPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *Store) upsertQuery() string {
	switch s.backend {
	case BackendMySQL:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, cache_timestamp) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE cache_value = new.cache_value, cache_timestamp = new.cache_timestamp`, tableName)
	case BackendPostgres:
		return fmt.Sprintf(`INSERT INTO %s (cache_key, cache_value, cache_timestamp) VALUES ($1, $2, $3)
			ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, cache_timestamp = EXCLUDED.cache_timestamp`, tableName)
	default: // sqlite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (cache_key, cache_value, cache_timestamp) VALUES (?, ?, ?)`, tableName)
	}
}

// ParseMySQLDSN is a thin re-export of the MySQL driver's DSN parser that
// validates a user-supplied MySQL connection string without connecting.
func ParseMySQLDSN(dsn string) error {
	_, err := mysql.ParseDSN(dsn)
	return err
}
