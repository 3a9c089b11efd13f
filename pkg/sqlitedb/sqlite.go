package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wonny/b3lake/backend/pkg/config"
)

// DB wraps a single-writer SQLite handle (WAL mode)
type DB struct {
	SQL *sql.DB
}

// Open opens the database file at path with WAL journaling and a busy timeout.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// go-sqlite3 serializes writers; one connection avoids SQLITE_BUSY churn
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	return &DB{SQL: db}, nil
}

// New opens the database configured by SQLITE_PATH
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	return Open(ctx, cfg.SQLite.Path)
}

// Close closes the handle
func (db *DB) Close() error {
	if db.SQL != nil {
		return db.SQL.Close()
	}
	return nil
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}
