package sqlite

import (
	"io"
	"log/slog"
	"time"

	"github.com/garnizeh/labbook/internal/db"
	"github.com/garnizeh/labbook/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.AdminRepo = (*SQLiteRepo)(nil)
var _ repository.BookingRepo = (*SQLiteRepo)(nil)
var _ repository.SessionRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

// Timestamps are stored as unix milliseconds.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
