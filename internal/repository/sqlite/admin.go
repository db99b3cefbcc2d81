package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/labbook/pkg/models"
)

func (r *SQLiteRepo) CreateAdmin(ctx context.Context, a *models.Admin) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("admin is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO admins (username, password_hash) VALUES (?, ?)`, a.Username, a.PasswordHash)
	if err != nil {
		return 0, fmt.Errorf("insert admin: %w", err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, username, password_hash FROM admins WHERE id = ?`, id)
	return scanAdmin(row)
}

func (r *SQLiteRepo) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, username, password_hash FROM admins WHERE username = ?`, username)
	return scanAdmin(row)
}

func scanAdmin(row *sql.Row) (*models.Admin, error) {
	var a models.Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("scan admin: %w", err)
	}

	return &a, nil
}
