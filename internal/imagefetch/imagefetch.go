// Package imagefetch downloads the site's static images from a manifest of
// remote URLs.
package imagefetch

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qri-io/jsonschema"
)

//go:embed manifest.json
var DefaultManifest []byte

//go:embed schema.json
var manifestSchema []byte

type Image struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type Manifest struct {
	Images []Image `json:"images"`
}

// LoadManifest validates data against the manifest schema and decodes it.
func LoadManifest(ctx context.Context, data []byte) (*Manifest, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(manifestSchema, rs); err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	keyErrs, err := rs.ValidateBytes(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}
	if len(keyErrs) > 0 {
		msgs := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			msgs = append(msgs, ke.Error())
		}
		return nil, fmt.Errorf("invalid manifest: %s", strings.Join(msgs, "; "))
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return &m, nil
}

// Failure records an image that could not be fetched.
type Failure struct {
	Image Image
	Err   error
}

type Result struct {
	Downloaded []string
	Failed     []Failure
}

// NewHTTPClient returns a client suited to pulling images from a CDN.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Fetcher downloads manifest images into Dir, one at a time. Network
// errors and 5xx responses are retried up to Retries times, waiting
// Backoff times the retry number between tries.
type Fetcher struct {
	Client  *http.Client
	Dir     string
	Logger  *slog.Logger
	Retries int
	Backoff time.Duration
}

var errUnsafeName = errors.New("unsafe filename")

// statusError is a non-200 response.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return "unexpected status " + e.status
}

func retryable(err error) bool {
	if errors.Is(err, errUnsafeName) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true
}

// FetchAll downloads every image in m. Individual failures are recorded in
// the result and do not stop the run; the error is only for setup problems
// or cancellation.
func (f *Fetcher) FetchAll(ctx context.Context, m *Manifest) (*Result, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", f.Dir, err)
	}

	res := &Result{}
	for _, img := range m.Images {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := f.fetchWithRetry(ctx, client, img); err != nil {
			logger.Warn("failed to download image", slog.String("filename", img.Filename), slog.String("url", img.URL), slog.Any("err", err))
			res.Failed = append(res.Failed, Failure{Image: img, Err: err})
			continue
		}

		logger.Info("downloaded image", slog.String("filename", img.Filename))
		res.Downloaded = append(res.Downloaded, img.Filename)
	}

	return res, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, client *http.Client, img Image) error {
	var err error
	for attempt := 0; attempt <= f.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.Backoff * time.Duration(attempt)):
			}
		}

		err = f.fetch(ctx, client, img)
		if err == nil || !retryable(err) {
			return err
		}
	}

	return fmt.Errorf("after %d attempts: %w", f.Retries+1, err)
}

func (f *Fetcher) fetch(ctx context.Context, client *http.Client, img Image) error {
	if !safeName(img.Filename) {
		return fmt.Errorf("%w: %q", errUnsafeName, img.Filename)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	tmp, err := os.CreateTemp(f.Dir, "."+img.Filename+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", img.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", img.Filename, err)
	}

	return os.Rename(tmp.Name(), filepath.Join(f.Dir, img.Filename))
}

func safeName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
