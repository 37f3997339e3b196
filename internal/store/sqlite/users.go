package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dustbooks/dust-server/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO users (id, username, email, password_hash, display_name, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.DisplayName, boolToInt(u.IsActive),
			formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
		return err
	})
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE id = ? AND deleted_at IS NULL`, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE username = ? AND deleted_at IS NULL`, username))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE email = ? AND deleted_at IS NULL`, email))
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, userSelect+` WHERE deleted_at IS NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE users SET username = ?, email = ?, password_hash = ?, display_name = ?, is_active = ?, updated_at = ?
			WHERE id = ?`,
			u.Username, u.Email, u.PasswordHash, u.DisplayName, boolToInt(u.IsActive), formatTime(u.UpdatedAt), u.ID)
		return err
	})
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&n)
	return n, err
}

const userSelect = `SELECT id, username, email, password_hash, display_name, is_active, created_at, updated_at, deleted_at FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row *sql.Row) (*domain.User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func scanUserRow(row rowScanner) (*domain.User, error) {
	var u domain.User
	var isActive int
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &isActive, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	u.IsActive = isActive != 0
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if u.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
