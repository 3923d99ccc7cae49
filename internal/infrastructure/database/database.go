package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// openPingTimeout bounds the connectivity check inside Open.
const openPingTimeout = 5 * time.Second

// Config is the database section of config.yaml.
type Config struct {
	// Path to the SQLite file. The parent directory is created on
	// first run.
	Path string

	// WALMode turns on write-ahead logging so roster reads don't block
	// while a Seed is writing.
	WALMode bool

	// BusyTimeout is how long to wait on a locked database, in seconds.
	BusyTimeout int
}

// DB is the roster database handle: sql.DB plus migrations, a health
// check and the file path for diagnostics.
type DB struct {
	*sql.DB
	path string
}

// Open opens (and on first run creates) the roster database.
//
// Pragmas travel on the DSN: busy timeout and foreign keys always,
// WAL with synchronous=NORMAL when configured. The pool is pinned to a
// single connection. SQLite has one writer and the roster is
// read-mostly, and one connection keeps the pragmas applying to every query.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The roster names real people; keep the file owner-only. On a
	// fresh path the file appears with SQLite's first write, so a chmod
	// failure here is not an error.
	_ = os.Chmod(cfg.Path, 0600)

	return db, nil
}

// Path returns the filesystem path of the database file.
func (db *DB) Path() string {
	return db.path
}

// Close releases the connection pool.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to prove the file is still readable.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// BeginTx starts a transaction, wrapping the error with context.
// Callers follow the usual defer-Rollback-then-Commit shape.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
