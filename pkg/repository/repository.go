package repository

import (
	"context"
	"time"

	"github.com/garnizeh/labbook/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Lookups return (nil, nil) when no row matches.

type AdminRepo interface {
	CreateAdmin(ctx context.Context, a *models.Admin) (int64, error)
	GetAdminByID(ctx context.Context, id int64) (*models.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
}

type BookingRepo interface {
	CreateBooking(ctx context.Context, b *models.Booking) (int64, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	// UpdateBookingStatus reports false when no booking has the given id.
	UpdateBookingStatus(ctx context.Context, id int64, status string) (bool, error)
	ListRecentBookings(ctx context.Context, limit int) ([]models.Booking, error)
	ListAllBookings(ctx context.Context) ([]models.Booking, error)
	// BookingStats counts bookings overall, created in [dayStart, dayEnd),
	// and with status pending, in a single read.
	BookingStats(ctx context.Context, dayStart, dayEnd time.Time) (models.BookingStats, error)
}

type SessionRepo interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
