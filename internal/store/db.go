package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLDB is the database interface used by the store. *sql.DB satisfies it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ SQLDB = (*sql.DB)(nil)

// Open opens (and creates, if needed) the SQLite database at dsn and applies
// the schema. ":memory:" is pinned to one connection, since every new
// connection would otherwise see its own empty database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	if !memory {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB creates the schema.
// PRE: db is a valid database connection
// POST: all tables exist, WAL mode and foreign keys are enabled
func InitDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS client_order (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		client_name TEXT NOT NULL DEFAULT '',
		due_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS task (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT '',
		order_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS subscription (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 0,
		renewal_date TEXT NOT NULL DEFAULT '',
		billing_cycle TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS invoice (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		client_name TEXT NOT NULL DEFAULT '',
		due_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		amount INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS calendar_entry (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		time TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'meeting',
		priority TEXT NOT NULL DEFAULT '',
		attendees TEXT NOT NULL DEFAULT '[]',
		location TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'local'
	);

	CREATE INDEX IF NOT EXISTS idx_calendar_entry_source ON calendar_entry(source);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
