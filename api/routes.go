package api

import (
	"net/http"

	"github.com/garnizeh/labbook/internal/booking"
	"github.com/garnizeh/labbook/internal/config"
	"github.com/garnizeh/labbook/internal/metrics"
	"github.com/gorilla/mux"
)

// Deps are the services the HTTP layer is built on. Metrics may be nil.
type Deps struct {
	Auth     Authenticator
	Bookings *booking.Service
	Metrics  *metrics.Metrics
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.Use(MetricsMiddleware(deps.Metrics))

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(deps.Auth, cfg.CookieSecure, cfg.StaticDir)
	bookingsHandler := NewBookingsHandler(deps.Bookings, deps.Metrics)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	r.HandleFunc("/api/book", bookingsHandler.Submit).Methods("POST")

	// Admin pages and session endpoints
	r.HandleFunc("/admin/login", authHandler.LoginPage).Methods("GET")
	r.HandleFunc("/admin/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/admin/logout", authHandler.Logout).Methods("GET")
	r.HandleFunc("/admin/check-auth", authHandler.CheckAuth).Methods("GET")
	r.Handle("/admin", RequireSession(deps.Auth, true)(http.HandlerFunc(authHandler.Dashboard))).Methods("GET")

	// Admin API
	adminAPI := r.PathPrefix("/api/admin").Subrouter()
	adminAPI.Use(RequireSession(deps.Auth, false))
	adminAPI.HandleFunc("/stats", bookingsHandler.Stats).Methods("GET")
	adminAPI.HandleFunc("/recent-bookings", bookingsHandler.Recent).Methods("GET")
	adminAPI.HandleFunc("/booking/{id:[0-9]+}", bookingsHandler.Get).Methods("GET")
	adminAPI.HandleFunc("/booking/{id:[0-9]+}/status", bookingsHandler.SetStatus).Methods("POST")
	adminAPI.HandleFunc("/export", bookingsHandler.ExportCSV).Methods("GET")
	adminAPI.HandleFunc("/export.xlsx", bookingsHandler.ExportXLSX).Methods("GET")

	// Everything else is a static asset
	r.PathPrefix("/").Handler(staticHandler(cfg.StaticDir)).Methods("GET", "HEAD")

	return RecoveryMiddleware(LoggingMiddleware(CORSMiddleware(cfg.CORS.AllowedOrigins)(r)))
}
