package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/labbook/internal/imagefetch"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var manifestPath string
	var dir string
	var timeout time.Duration
	var retries int
	var backoff time.Duration

	flagSet := pflag.NewFlagSet("fetch-images", pflag.ContinueOnError)
	flagSet.StringVar(&manifestPath, "manifest", "", "path to a JSON image manifest (default: built-in site images)")
	flagSet.StringVar(&dir, "dir", "images", "directory to write images into")
	flagSet.DurationVar(&timeout, "timeout", 30*time.Second, "per-request HTTP timeout")
	flagSet.IntVar(&retries, "retries", 2, "retries for network errors and 5xx responses")
	flagSet.DurationVar(&backoff, "backoff", 500*time.Millisecond, "base wait between retries")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	data := imagefetch.DefaultManifest
	if manifestPath != "" {
		b, err := os.ReadFile(manifestPath)
		if err != nil {
			return fmt.Errorf("read manifest: %w", err)
		}
		data = b
	}

	manifest, err := imagefetch.LoadManifest(ctx, data)
	if err != nil {
		return err
	}

	f := &imagefetch.Fetcher{
		Client:  imagefetch.NewHTTPClient(timeout),
		Dir:     dir,
		Logger:  logger,
		Retries: retries,
		Backoff: backoff,
	}
	res, err := f.FetchAll(ctx, manifest)
	if err != nil {
		return err
	}

	logger.Info("image download finished",
		slog.Int("downloaded", len(res.Downloaded)),
		slog.Int("failed", len(res.Failed)),
		slog.String("dir", dir),
	)
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d images failed", len(res.Failed), len(manifest.Images))
	}

	return nil
}
