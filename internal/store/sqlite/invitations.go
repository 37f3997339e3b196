package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dustbooks/dust-server/internal/domain"
)

func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO invitations (id, email, token_hash, created_by, expires_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.Email, inv.TokenHash, inv.CreatedBy, formatTime(inv.ExpiresAt),
			formatTime(inv.CreatedAt), formatTime(inv.UpdatedAt))
		return err
	})
}

const invitationSelect = `SELECT id, email, token_hash, created_by, expires_at, consumed_at, consumed_by, created_at, updated_at, deleted_at FROM invitations`

func (s *Store) GetInvitationByTokenHash(ctx context.Context, hash string) (*domain.Invitation, error) {
	return scanInvitation(s.db.QueryRowContext(ctx, invitationSelect+` WHERE token_hash = ? AND deleted_at IS NULL`, hash))
}

func (s *Store) ListInvitations(ctx context.Context) ([]*domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx, invitationSelect+` WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Invitation
	for rows.Next() {
		inv, err := scanInvitationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) ConsumeInvitation(ctx context.Context, id, userID string) error {
	return withRetry(func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE invitations SET consumed_at = ?, consumed_by = ?, updated_at = ?
			WHERE id = ? AND consumed_at IS NULL AND deleted_at IS NULL`,
			formatTime(nowUTC()), userID, formatTime(nowUTC()), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errNotFound
		}
		return nil
	})
}

func (s *Store) RevokeInvitation(ctx context.Context, id string) error {
	return withRetry(func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE invitations SET deleted_at = ?, updated_at = ?
			WHERE id = ? AND consumed_at IS NULL AND deleted_at IS NULL`,
			formatTime(nowUTC()), formatTime(nowUTC()), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errNotFound
		}
		return nil
	})
}

func scanInvitation(row *sql.Row) (*domain.Invitation, error) {
	inv, err := scanInvitationRow(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	return inv, nil
}

func scanInvitationRow(row rowScanner) (*domain.Invitation, error) {
	var inv domain.Invitation
	var expiresAt, createdAt, updatedAt string
	var consumedAt, deletedAt sql.NullString
	if err := row.Scan(&inv.ID, &inv.Email, &inv.TokenHash, &inv.CreatedBy, &expiresAt,
		&consumedAt, &inv.ConsumedBy, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	var err error
	if inv.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if inv.ConsumedAt, err = parseNullableTime(consumedAt); err != nil {
		return nil, err
	}
	if inv.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) GetAuthSettings(ctx context.Context) (*domain.AuthSettings, error) {
	var flow, updatedAt string
	err := s.db.QueryRowContext(ctx, `SELECT auth_flow, updated_at FROM auth_settings WHERE id = 1`).Scan(&flow, &updatedAt)
	if err != nil {
		return nil, err
	}
	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.AuthSettings{AuthFlow: domain.AuthFlow(flow), UpdatedAt: t}, nil
}

func (s *Store) SetAuthFlow(ctx context.Context, flow domain.AuthFlow) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `UPDATE auth_settings SET auth_flow = ?, updated_at = ? WHERE id = 1`,
			string(flow), formatTime(nowUTC()))
		return err
	})
}
