package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garnizeh/labbook/pkg/models"
)

func (r *SQLiteRepo) CreateSession(ctx context.Context, s *models.Session) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO admin_sessions (id, admin_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.AdminID, toMillis(s.CreatedAt), toMillis(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (r *SQLiteRepo) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, admin_id, created_at, expires_at FROM admin_sessions WHERE id = ?`, id)

	var (
		s                  models.Session
		created, expiresAt int64
	)
	if err := row.Scan(&s.ID, &s.AdminID, &created, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt = fromMillis(created)
	s.ExpiresAt = fromMillis(expiresAt)

	return &s, nil
}

func (r *SQLiteRepo) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM admin_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func (r *SQLiteRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM admin_sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		r.logger.Debug("expired sessions purged", slog.Int64("count", n))
	}

	return n, nil
}
