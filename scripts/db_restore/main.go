package main

import (
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/labbook/internal/config"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	dst := cfg.DatabasePath
	src := dst + ".bak"

	srcFile, err := os.Open(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	// stale WAL/SHM files would be replayed over the restored copy
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dst + suffix); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Database restore completed.")
}
