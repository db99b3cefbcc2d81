package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// pragmas applied to every pooled connection when the DSN carries none.
const defaultPragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// DB wraps the sql.DB for connection management
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New opens the SQLite database at dsn and verifies the connection.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	conn, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	logger.Debug("database opened", slog.String("dsn", dsn))
	return &DB{conn: conn, logger: logger}, nil
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + defaultPragmas
	}
	return dsn + "?" + defaultPragmas
}

// Close closes the DB connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Exec executes a query
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// QueryRows executes a query that returns rows; the caller closes them.
func (db *DB) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// GetConn returns the underlying sql.DB
func (db *DB) GetConn() *sql.DB {
	return db.conn
}
