package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	dbfs "github.com/garnizeh/labbook/db"
	"github.com/garnizeh/labbook/api"
	"github.com/garnizeh/labbook/internal/auth"
	"github.com/garnizeh/labbook/internal/booking"
	"github.com/garnizeh/labbook/internal/config"
	"github.com/garnizeh/labbook/internal/db"
	"github.com/garnizeh/labbook/internal/metrics"
	sqlite "github.com/garnizeh/labbook/internal/repository/sqlite"
)

func init() {
	api.SetLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

type testEnv struct {
	srv     *httptest.Server
	client  *http.Client
	repo    *sqlite.SQLiteRepo
	metrics *metrics.Metrics
}

func writeStatic(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"index.html":           "<h1>home</h1>",
		"css/site.css":         "body{}",
		"admin/login.html":     "<form>login</form>",
		"admin/dashboard.html": "<h1>dashboard</h1>",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// setupServer starts the full router over a fresh SQLite file with the
// admin/admin123 account seeded.
func setupServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	d, err := db.New(ctx, filepath.Join(dir, "bookings.db"), nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := sqlite.New(d, nil)
	if _, err := auth.EnsureAdmin(ctx, repo, "admin", "admin123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	staticDir := filepath.Join(dir, "static")
	writeStatic(t, staticDir)

	cfg := &config.Config{
		StaticDir:       staticDir,
		SessionSecret:   "test-secret",
		SessionDuration: time.Hour,
		CORS:            config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	m := metrics.New()
	deps := api.Deps{
		Auth:     auth.NewService(repo, repo, cfg.SessionSecret, cfg.SessionDuration, nil),
		Bookings: booking.NewService(repo, nil),
		Metrics:  m,
	}

	srv := httptest.NewServer(api.SetupRoutes(cfg, "test", "now", deps))
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{srv: srv, client: client, repo: repo, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rdr = bytes.NewReader(raw)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	res := e.do(t, http.MethodPost, "/admin/login", map[string]string{"username": "admin", "password": "admin123"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200 got %d", res.StatusCode)
	}
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}
