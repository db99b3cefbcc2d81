package db

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// migrationsDir is the directory inside the embedded FS holding goose files.
const migrationsDir = "migrations"

// Migrate applies every pending goose migration found under migrations/ in
// migrationFS. Applied versions are tracked by goose in its own version
// table, so running Migrate repeatedly is a no-op once the schema is current.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS) error {
	provider, err := newProvider(d, migrationFS)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		d.logger.Info("migration applied",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}

	return nil
}

// Version reports the schema version currently recorded in the database.
func Version(ctx context.Context, d *DB, migrationFS fs.FS) (int64, error) {
	provider, err := newProvider(d, migrationFS)
	if err != nil {
		return 0, err
	}

	v, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}

	return v, nil
}

func newProvider(d *DB, migrationFS fs.FS) (*goose.Provider, error) {
	sub, err := fs.Sub(migrationFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, d.conn, sub)
	if err != nil {
		return nil, fmt.Errorf("init migration provider: %w", err)
	}

	return provider, nil
}
