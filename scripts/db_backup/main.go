package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/garnizeh/labbook/internal/config"
	"github.com/garnizeh/labbook/internal/db"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	src := cfg.DatabasePath
	dst := src + ".bak"

	if _, err := os.Stat(src); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	// VACUUM INTO refuses to overwrite an existing file
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, src, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if _, err := database.Exec(ctx, "VACUUM INTO '"+strings.ReplaceAll(dst, "'", "''")+"'"); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup completed: %s\n", dst)
}
