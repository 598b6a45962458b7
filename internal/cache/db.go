// Package cache persists binary-inspection results and whole-build
// snapshots in a sqlite database under the cache-home directory, so
// that rebuilding from an unchanged root does not re-invoke the ELF
// and string-extraction tools for every binary.
package cache

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sqlite connection with the transaction helpers the rest
// of the package uses.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS binary_cache (
		path TEXT NOT NULL,
		alt_root TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		needed_json TEXT NOT NULL,
		files_json TEXT NOT NULL,
		strings_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (path, alt_root)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_cache (
		fingerprint TEXT PRIMARY KEY,
		alt_root TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`,
}

// Open opens or creates the sqlite database at dbPath, creating its
// parent directory and schema as needed.
func Open(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-32000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	db := &DB{conn: conn, logger: logger, dbPath: dbPath}

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying *sql.DB.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back if fn returns an error or panics.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("rollback failed", "error", err, "rollback_error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Exec executes a query without returning rows.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
