// Package localdb provides the embedded SQLite store that campussync treats
// as the source of truth.
//
// The store is always writable, online or not. Each collection is a table of
// JSON documents keyed by an autoincrement integer id that becomes the
// record's local identity on first insert:
//
//	CREATE TABLE "students" (
//	    id         INTEGER PRIMARY KEY AUTOINCREMENT,
//	    data       TEXT NOT NULL,   -- entity JSON
//	    updated_at TEXT NOT NULL
//	);
//
// Indexed fields declared in the schema package are backed by expression
// indexes over json_extract, so QueryByIndex does not scan the table.
//
// Architecture:
//   - Database file: campussync.db (WAL mode)
//   - One table per collection, plus sync_runs and change_seq
//   - Triggers bump change_seq on every record insert, update and delete
//     so watchers can tell record mutations from bookkeeping writes.
package localdb

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a record id does not exist in a collection.
var ErrNotFound = errors.New("record not found")

// DB wraps the SQLite connection holding local records.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens, creating if needed, the database at path. ":memory:" gives a
// private in-memory database, which tests use. Call InitSchema before use and
// Close when done.
//
//	store, err := localdb.Open(".campussync/campussync.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*DB, error) {
	path = strings.TrimPrefix(path, "file:")
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to :memory: would see its own empty database.
	if memory {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &DB{conn: conn, path: path}, nil
}

// dsn applies the pragmas on every new pool connection, not just the first.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(wal)")
	}
	return "file:" + path + "?" + q.Encode()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}
