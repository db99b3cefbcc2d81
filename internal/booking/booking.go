// Package booking implements public test-booking submission and the admin
// operations over stored bookings.
package booking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/garnizeh/labbook/internal/export"
	"github.com/garnizeh/labbook/pkg/models"
	"github.com/garnizeh/labbook/pkg/repository"
)

// DefaultRecentLimit is the number of bookings Recent returns when asked for
// a non-positive limit.
const DefaultRecentLimit = 10

// SubmitRequest is the public booking form as sent by the frontend.
type SubmitRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	TestType      string `json:"testType"`
	PreferredDate string `json:"preferredDate"`
	Message       string `json:"message,omitempty"`
}

// Validate reports every empty required field, in form order, by wire name.
func (r SubmitRequest) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", r.Name},
		{"email", r.Email},
		{"phone", r.Phone},
		{"testType", r.TestType},
		{"preferredDate", r.PreferredDate},
	}

	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.field)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	return nil
}

type Service struct {
	repo     repository.BookingRepo
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone whose calendar day Stats counts as "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func NewService(repo repository.BookingRepo, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Service{repo: repo, logger: logger, location: time.UTC, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit validates and stores a new booking with status pending.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	b := &models.Booking{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		TestType:      req.TestType,
		PreferredDate: req.PreferredDate,
		Message:       req.Message,
		Status:        models.StatusPending,
		CreatedAt:     s.now().UTC().Truncate(time.Millisecond),
	}

	id, err := s.repo.CreateBooking(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("booking created",
		slog.Int64("id", id),
		slog.String("name", req.Name),
		slog.String("email", req.Email),
		slog.String("test_type", req.TestType),
	)

	return id, nil
}

// Stats returns totals for the dashboard.
func (s *Service) Stats(ctx context.Context) (models.BookingStats, error) {
	now := s.now().In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	stats, err := s.repo.BookingStats(ctx, dayStart, dayEnd)
	if err != nil {
		return models.BookingStats{}, fmt.Errorf("booking stats: %w", err)
	}

	return stats, nil
}

// Recent returns up to limit bookings, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	out, err := s.repo.ListRecentBookings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent bookings: %w", err)
	}
	if out == nil {
		out = []models.Booking{}
	}

	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b == nil {
		return nil, ErrNotFound
	}

	return b, nil
}

// SetStatus overwrites the status of booking id. Any non-empty value is
// accepted; values the dashboard does not know are logged.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return &ValidationError{Missing: []string{"status"}}
	}

	found, err := s.repo.UpdateBookingStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if !found {
		return ErrNotFound
	}

	if !models.KnownStatus(status) {
		s.logger.Warn("booking set to unrecognised status", slog.Int64("id", id), slog.String("status", status))
	}
	s.logger.Info("booking status updated", slog.Int64("id", id), slog.String("status", status))

	return nil
}

// ExportCSV writes every booking as CSV to w.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	all, err := s.repo.ListAllBookings(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	return export.WriteCSV(w, all)
}

// ExportXLSX writes every booking as an Excel workbook to w.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer) error {
	all, err := s.repo.ListAllBookings(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	return export.WriteXLSX(w, all)
}
