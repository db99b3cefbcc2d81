package models

import "time"

// Domain models matching the database schema in db/migrations.

// Booking statuses used by the admin dashboard. Status is stored as an open
// string; these are the values the frontend knows how to render.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// KnownStatus reports whether s is one of the statuses the dashboard renders.
func KnownStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Admin struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
}

type Booking struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	Phone         string    `json:"phone" db:"phone"`
	TestType      string    `json:"test_type" db:"test_type"`
	PreferredDate string    `json:"preferred_date" db:"preferred_date"`
	Message       string    `json:"message" db:"message"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// BookingStats is the dashboard summary.
type BookingStats struct {
	Total   int64 `json:"total_bookings"`
	Today   int64 `json:"today_bookings"`
	Pending int64 `json:"pending_tests"`
}

// Session is a server-side record of a successful admin login.
type Session struct {
	ID        string    `json:"id"`
	AdminID   int64     `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
