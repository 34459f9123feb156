// Package sqlite implements the domain repositories on a local SQLite file.
// This is the default store: a single process owns the file and all access
// goes through one connection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"weighbridge/internal/domain"
	"weighbridge/internal/feed"
)

const defaultPath = "data/weighbridge.db"

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql  *sql.DB
	hub  *feed.Hub[[]domain.WeighbridgeRecord]
	path string
}

// Open opens (creating if needed) the database file at path and runs
// migrations. An empty path uses data/weighbridge.db.
func Open(path string) (*DB, error) {
	if path == "" {
		path = defaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	s, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := &DB{sql: s, hub: feed.NewHub[[]domain.WeighbridgeRecord](), path: path}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// stmtCtx returns the context a statement runs under. The driver handles a
// cancelled context by interrupting the connection, and with a single
// connection that aborts whichever statement is running on it, not only the
// caller's. A live ctx is therefore detached from cancellation; an already
// done ctx is passed through so database/sql rejects it before the driver
// sees it.
func stmtCtx(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return ctx
	}
	return context.WithoutCancel(ctx)
}

// Path returns the database file location.
func (d *DB) Path() string {
	return d.path
}

// Close ends every watch and closes the database.
func (d *DB) Close() error {
	d.hub.Close()
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS weighbridge_record (record_id TEXT PRIMARY KEY, license_number TEXT NOT NULL, driver_name TEXT NOT NULL, fleet_type TEXT NOT NULL CHECK(fleet_type IN ('INBOUND','OUTBOUND')), tare_weight REAL NOT NULL, gross_weight REAL NOT NULL, entry_date TEXT NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_weighbridge_record_entry_date ON weighbridge_record(entry_date);",
		"CREATE TABLE IF NOT EXISTS operators (id INTEGER PRIMARY KEY AUTOINCREMENT, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at INTEGER NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, operator_id INTEGER NOT NULL REFERENCES operators(id) ON DELETE CASCADE, user_agent TEXT NOT NULL DEFAULT '', expires_at INTEGER NOT NULL, created_at INTEGER NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	}
	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
