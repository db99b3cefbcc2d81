// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login attempt outcomes.
const (
	LoginSuccess         = "success"
	LoginUnknownUser     = "unknown_user"
	LoginInvalidPassword = "invalid_password"
	LoginError           = "error"
)

// Metrics groups the service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	BookingsSubmitted prometheus.Counter
	LoginAttempts     *prometheus.CounterVec
	StatusUpdates     *prometheus.CounterVec
	Exports           *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labbook_http_requests_total",
			Help: "HTTP requests by route template, method and status code",
		}, []string{"route", "method", "code"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labbook_http_request_duration_seconds",
			Help:    "HTTP request latency by route template",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),

		BookingsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "labbook_bookings_submitted_total",
			Help: "Bookings accepted from the public form",
		}),

		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labbook_login_attempts_total",
			Help: "Admin login attempts by outcome",
		}, []string{"result"}),

		StatusUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labbook_booking_status_updates_total",
			Help: "Booking status changes by new status",
		}, []string{"status"}),

		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "labbook_exports_total",
			Help: "Booking exports by format",
		}, []string{"format"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) BookingSubmitted() {
	if m == nil {
		return
	}
	m.BookingsSubmitted.Inc()
}

func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// StatusUpdated counts a status change. Unrecognised statuses share one
// label value to keep cardinality bounded.
func (m *Metrics) StatusUpdated(status string, known bool) {
	if m == nil {
		return
	}
	if !known {
		status = "other"
	}
	m.StatusUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) Exported(format string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(format).Inc()
}
