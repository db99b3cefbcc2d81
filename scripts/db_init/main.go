package main

import (
	"context"
	"fmt"
	"os"

	dbfs "github.com/garnizeh/labbook/db"
	"github.com/garnizeh/labbook/internal/auth"
	"github.com/garnizeh/labbook/internal/config"
	"github.com/garnizeh/labbook/internal/db"
	sqlite "github.com/garnizeh/labbook/internal/repository/sqlite"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	created, err := auth.EnsureAdmin(ctx, sqlite.New(database, nil), cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Seed error: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Admin account %q created.\n", cfg.Admin.Username)
	}

	v, err := db.Version(ctx, database, dbfs.Migrations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Version error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database initialized successfully (schema version %d).\n", v)
}
