package imagefetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garnizeh/labbook/internal/imagefetch"
)

func TestLoadManifest_Default(t *testing.T) {
	m, err := imagefetch.LoadManifest(context.Background(), imagefetch.DefaultManifest)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Images) != 14 {
		t.Fatalf("expected 14 images, got %d", len(m.Images))
	}
	if m.Images[0].Filename != "hero-path.jpg" || !strings.HasPrefix(m.Images[0].URL, "https://images.unsplash.com/") {
		t.Fatalf("unexpected first image %+v", m.Images[0])
	}
}

func TestLoadManifest_Invalid(t *testing.T) {
	cases := map[string]string{
		"NotJSON":      `nope`,
		"NoImages":     `{}`,
		"EmptyList":    `{"images":[]}`,
		"MissingURL":   `{"images":[{"filename":"a.jpg"}]}`,
		"EmptyName":    `{"images":[{"filename":"","url":"https://x/a.jpg"}]}`,
		"NotHTTP":      `{"images":[{"filename":"a.jpg","url":"file:///etc/passwd"}]}`,
		"WrongType":    `{"images":[{"filename":1,"url":"https://x/a.jpg"}]}`,
		"ImagesObject": `{"images":{"filename":"a.jpg"}}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := imagefetch.LoadManifest(context.Background(), []byte(data)); err == nil {
				t.Fatalf("expected error for %s", data)
			}
		})
	}
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg", "/also.jpg":
			_, _ = w.Write([]byte("img:" + r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "images")
	m := &imagefetch.Manifest{Images: []imagefetch.Image{
		{Filename: "ok.jpg", URL: srv.URL + "/ok.jpg"},
		{Filename: "missing.jpg", URL: srv.URL + "/missing.jpg"},
		{Filename: "../escape.jpg", URL: srv.URL + "/ok.jpg"},
		{Filename: "sub/dir.jpg", URL: srv.URL + "/ok.jpg"},
		{Filename: "also.jpg", URL: srv.URL + "/also.jpg"},
	}}

	f := &imagefetch.Fetcher{Client: srv.Client(), Dir: dir}
	res, err := f.FetchAll(context.Background(), m)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	if len(res.Downloaded) != 2 || res.Downloaded[0] != "ok.jpg" || res.Downloaded[1] != "also.jpg" {
		t.Fatalf("downloaded: %v", res.Downloaded)
	}
	if len(res.Failed) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(res.Failed))
	}

	b, err := os.ReadFile(filepath.Join(dir, "ok.jpg"))
	if err != nil || string(b) != "img:/ok.jpg" {
		t.Fatalf("ok.jpg: %q %v", b, err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.jpg")); !os.IsNotExist(err) {
		t.Fatalf("file escaped target directory")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the downloaded files, got %v", names)
	}
}

func TestFetchAll_Retries(t *testing.T) {
	var flaky, gone atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.jpg":
			if flaky.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("img"))
		case "/gone.jpg":
			gone.Add(1)
			w.WriteHeader(http.StatusGone)
		}
	}))
	defer srv.Close()

	m := &imagefetch.Manifest{Images: []imagefetch.Image{
		{Filename: "flaky.jpg", URL: srv.URL + "/flaky.jpg"},
		{Filename: "gone.jpg", URL: srv.URL + "/gone.jpg"},
	}}
	f := &imagefetch.Fetcher{Client: srv.Client(), Dir: t.TempDir(), Retries: 2, Backoff: time.Millisecond}
	res, err := f.FetchAll(context.Background(), m)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(res.Downloaded) != 1 || res.Downloaded[0] != "flaky.jpg" {
		t.Fatalf("downloaded: %v", res.Downloaded)
	}
	if flaky.Load() != 3 {
		t.Fatalf("expected 3 attempts for 5xx, got %d", flaky.Load())
	}
	if gone.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", gone.Load())
	}
}

func TestFetchAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &imagefetch.Manifest{Images: []imagefetch.Image{{Filename: "a.jpg", URL: "http://127.0.0.1:1/a.jpg"}}}
	f := &imagefetch.Fetcher{Dir: t.TempDir()}
	if _, err := f.FetchAll(ctx, m); err == nil {
		t.Fatalf("expected context error")
	}
}
