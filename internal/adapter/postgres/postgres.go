// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"weighbridge/internal/domain"
	"weighbridge/internal/feed"
)

// changeChannel is the LISTEN/NOTIFY channel record writes are announced on,
// so watches in other processes sharing the database see them too.
const changeChannel = "weighbridge_record_changed"

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql      *sql.DB
	hub      *feed.Hub[[]domain.WeighbridgeRecord]
	listener *pq.Listener
	stop     chan struct{}
}

// Open connects to PostgreSQL, pings, runs migrations and starts listening
// for record changes.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{
		sql:  s,
		hub:  feed.NewHub[[]domain.WeighbridgeRecord](),
		stop: make(chan struct{}),
	}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d.listener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("postgres listener: %v", err)
		}
	})
	if err := d.listener.Listen(changeChannel); err != nil {
		_ = d.listener.Close()
		_ = s.Close()
		return nil, fmt.Errorf("listen %s: %w", changeChannel, err)
	}
	go d.forwardNotifications()
	return d, nil
}

// Close stops the listener, ends every watch and closes the connection pool.
func (d *DB) Close() error {
	close(d.stop)
	_ = d.listener.Close()
	d.hub.Close()
	return d.sql.Close()
}

func (d *DB) forwardNotifications() {
	for {
		select {
		case <-d.stop:
			return
		case _, ok := <-d.listener.Notify:
			if !ok {
				return
			}
			// A nil notification follows a reconnect, when changes may have
			// been missed; refresh in either case.
			d.hub.Notify()
		case <-time.After(90 * time.Second):
			go func() { _ = d.listener.Ping() }()
		}
	}
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS weighbridge_record (record_id TEXT PRIMARY KEY, license_number TEXT NOT NULL, driver_name TEXT NOT NULL, fleet_type TEXT NOT NULL CHECK(fleet_type IN ('INBOUND','OUTBOUND')), tare_weight DOUBLE PRECISION NOT NULL, gross_weight DOUBLE PRECISION NOT NULL, entry_date TEXT NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_weighbridge_record_entry_date ON weighbridge_record(entry_date);",
		"CREATE TABLE IF NOT EXISTS operators (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, operator_id BIGINT NOT NULL REFERENCES operators(id) ON DELETE CASCADE, user_agent TEXT NOT NULL DEFAULT '', expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
