package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbfs "github.com/garnizeh/labbook/db"
	"github.com/garnizeh/labbook/api"
	"github.com/garnizeh/labbook/internal/auth"
	"github.com/garnizeh/labbook/internal/booking"
	"github.com/garnizeh/labbook/internal/config"
	"github.com/garnizeh/labbook/internal/db"
	"github.com/garnizeh/labbook/internal/metrics"
	redisrepo "github.com/garnizeh/labbook/internal/repository/redis"
	sqlite "github.com/garnizeh/labbook/internal/repository/sqlite"
	"github.com/garnizeh/labbook/pkg/repository"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)

	log.Printf("Starting labbook server version %s (built at %s)", version, buildTime)

	ctx := context.Background()

	// Open database connection
	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	repo := sqlite.New(database, logger)
	created, err := auth.EnsureAdmin(ctx, repo, cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	if created {
		logger.Info("admin account created", slog.String("username", cfg.Admin.Username))
	}

	var sessions repository.SessionRepo = repo
	if cfg.Sessions.Backend == config.SessionBackendRedis {
		client := redisrepo.NewClient(cfg.Sessions.Redis)
		defer client.Close()
		if err := redisrepo.Ping(ctx, client); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		sessions = redisrepo.NewSessionStore(client, "")
		logger.Info("using redis session store", slog.String("addr", cfg.Sessions.Redis.Address))
	}

	m := metrics.New()
	authSvc := auth.NewService(repo, sessions, cfg.SessionSecret, cfg.SessionDuration, logger,
		auth.WithAudit(func(_ string, outcome auth.Outcome) { m.LoginAttempt(string(outcome)) }),
	)
	bookingSvc := booking.NewService(repo, logger, booking.WithLocation(cfg.Location()))

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		Auth:     authSvc,
		Bookings: bookingSvc,
		Metrics:  m,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Close database connection
	if err := database.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Server exited")
}
