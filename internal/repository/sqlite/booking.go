package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/labbook/pkg/models"
)

const bookingColumns = `id, name, email, phone, test_type, preferred_date, message, status, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepo) CreateBooking(ctx context.Context, b *models.Booking) (int64, error) {
	if b == nil {
		return 0, fmt.Errorf("booking is nil")
	}

	status := b.Status
	if status == "" {
		status = models.StatusPending
	}
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	res, err := r.conn.Exec(ctx,
		`INSERT INTO bookings (name, email, phone, test_type, preferred_date, message, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Email, b.Phone, b.TestType, b.PreferredDate, b.Message, status, toMillis(created),
	)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}

	return b, nil
}

func (r *SQLiteRepo) UpdateBookingStatus(ctx context.Context, id int64, status string) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return false, fmt.Errorf("update booking %d status: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking %d status: %w", id, err)
	}

	return n > 0, nil
}

func (r *SQLiteRepo) ListRecentBookings(ctx context.Context, limit int) ([]models.Booking, error) {
	return r.listBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (r *SQLiteRepo) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	return r.listBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY id`)
}

func (r *SQLiteRepo) BookingStats(ctx context.Context, dayStart, dayEnd time.Time) (models.BookingStats, error) {
	var s models.BookingStats
	row := r.conn.QueryRow(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM bookings`, toMillis(dayStart), toMillis(dayEnd), models.StatusPending)
	if err := row.Scan(&s.Total, &s.Today, &s.Pending); err != nil {
		return models.BookingStats{}, fmt.Errorf("booking stats: %w", err)
	}

	return s, nil
}

func (r *SQLiteRepo) listBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return out, nil
}

func scanBooking(s rowScanner) (*models.Booking, error) {
	var (
		b       models.Booking
		created int64
	)
	if err := s.Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.TestType, &b.PreferredDate, &b.Message, &b.Status, &created); err != nil {
		return nil, err
	}
	b.CreatedAt = fromMillis(created)

	return &b, nil
}
