package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/garnizeh/labbook/internal/auth"
	"github.com/garnizeh/labbook/internal/metrics"
	"github.com/garnizeh/labbook/pkg/models"
	"github.com/gorilla/mux"
)

type ctxKey string

const CtxAdmin ctxKey = "admin"

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// AdminFromContext returns the admin attached by RequireSession.
func AdminFromContext(ctx context.Context) (*models.Admin, bool) {
	a, ok := ctx.Value(CtxAdmin).(*models.Admin)
	return a, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote", r.RemoteAddr),
		)
	})
}

// CORSMiddleware allows cross-origin calls from the given origins. "*"
// allows any origin without credentials; otherwise a listed Origin is echoed
// back with credentials allowed.
func CORSMiddleware(allowed []string) mux.MiddlewareFunc {
	wildcard := slices.Contains(allowed, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowed, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err), slog.String("path", r.URL.Path))
				writeError(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// MetricsMiddleware records request count and latency per route template.
// It must be installed with Router.Use so the matched route is known.
func MetricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.ObserveRequest(route, r.Method, rec.status, time.Since(start))
		})
	}
}

// Authenticator resolves and manages admin sessions.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Authenticate(ctx context.Context, token string) (*models.Admin, *models.Session, error)
	Logout(ctx context.Context, token string) error
	TTL() time.Duration
}

// RequireSession rejects requests without a valid session cookie: API
// routes get 401 JSON, pages are redirected to the login page.
func RequireSession(a Authenticator, page bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := authenticate(r, a)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthenticated) {
					logger.Error("failed to authenticate request", slog.Any("err", err))
					writeError(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				if page {
					http.Redirect(w, r, loginPath, http.StatusFound)
					return
				}
				writeError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CtxAdmin, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, a Authenticator) (*models.Admin, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, auth.ErrUnauthenticated
	}
	admin, _, err := a.Authenticate(r.Context(), c.Value)
	return admin, err
}
