package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/labbook/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := metrics.New()

	m.BookingSubmitted()
	m.BookingSubmitted()
	m.LoginAttempt(metrics.LoginSuccess)
	m.LoginAttempt(metrics.LoginInvalidPassword)
	m.LoginAttempt(metrics.LoginInvalidPassword)
	m.StatusUpdated("completed", true)
	m.StatusUpdated("typo", false)
	m.Exported("csv")
	m.ObserveRequest("/api/book", http.MethodPost, http.StatusCreated, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.BookingsSubmitted); got != 2 {
		t.Fatalf("bookings submitted: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.LoginAttempts.WithLabelValues(metrics.LoginInvalidPassword)); got != 2 {
		t.Fatalf("invalid password attempts: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.StatusUpdates.WithLabelValues("other")); got != 1 {
		t.Fatalf("other status updates: got %v want 1", got)
	}
	if got := testutil.ToFloat64(m.Exports.WithLabelValues("csv")); got != 1 {
		t.Fatalf("csv exports: got %v want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/book", "POST", "201")); got != 1 {
		t.Fatalf("requests: got %v want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.BookingSubmitted()
	m.LoginAttempt(metrics.LoginSuccess)
	m.StatusUpdated("x", false)
	m.Exported("xlsx")
	m.ObserveRequest("/", "GET", 200, time.Second)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics handler, got %d", w.Code)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := metrics.New()
	m.BookingSubmitted()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(body), "labbook_bookings_submitted_total 1") {
		t.Fatalf("expected booking counter in exposition, got:\n%s", body)
	}
}
