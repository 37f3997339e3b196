package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dustbooks/dust-server/internal/domain"
)

func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tags (id, name, category, requires_permission, seeded, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.Category, t.RequiresPermission, boolToInt(t.Seeded), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
		return err
	})
}

const tagSelect = `SELECT id, name, category, requires_permission, seeded, created_at, updated_at, deleted_at FROM tags`

func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	return scanTag(s.db.QueryRowContext(ctx, tagSelect+` WHERE name = ? AND deleted_at IS NULL`, name))
}

func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, tagSelect+` WHERE deleted_at IS NULL ORDER BY category ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Tag
	for rows.Next() {
		t, err := scanTagRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM tags WHERE deleted_at IS NULL AND category != '' ORDER BY category ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteTag removes a non-seeded tag. Deleting a tag cascades to
// book_tags but never touches the books themselves.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	return withRetry(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND seeded = 0`, id)
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

func (s *Store) ApplyTag(ctx context.Context, bt *domain.BookTag) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO book_tags (book_id, tag_id, applied_by, auto_applied, applied_at)
			VALUES (?, ?, ?, ?, ?)`,
			bt.BookID, bt.TagID, bt.AppliedBy, boolToInt(bt.AutoApplied), formatTime(bt.AppliedAt))
		return err
	})
}

func (s *Store) RemoveBookTag(ctx context.Context, bookID, tagID string) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM book_tags WHERE book_id = ? AND tag_id = ?`, bookID, tagID)
		return err
	})
}

func (s *Store) BookTags(ctx context.Context, bookID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.category, t.requires_permission, t.seeded, t.created_at, t.updated_at, t.deleted_at
		FROM book_tags bt JOIN tags t ON t.id = bt.tag_id
		WHERE bt.book_id = ? AND t.deleted_at IS NULL`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Tag
	for rows.Next() {
		t, err := scanTagRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SetUserTagPreference(ctx context.Context, pref *domain.UserTagPreference) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO user_tag_preferences (user_id, tag_id, state, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, tag_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
			pref.UserID, pref.TagID, string(pref.State), formatTime(pref.UpdatedAt))
		return err
	})
}

func (s *Store) UserTagPreferences(ctx context.Context, userID string) ([]*domain.UserTagPreference, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, tag_id, state, updated_at FROM user_tag_preferences WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.UserTagPreference
	for rows.Next() {
		var p domain.UserTagPreference
		var state, updatedAt string
		if err := rows.Scan(&p.UserID, &p.TagID, &state, &updatedAt); err != nil {
			return nil, err
		}
		p.State = domain.TagPreferenceMode(state)
		t, err := parseTime(updatedAt)
		if err != nil {
			return nil, err
		}
		p.UpdatedAt = t
		out = append(out, &p)
	}
	return out, rows.Err()
}

func scanTag(row *sql.Row) (*domain.Tag, error) {
	t, err := scanTagRow(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan tag: %w", err)
	}
	return t, nil
}

func scanTagRow(row rowScanner) (*domain.Tag, error) {
	var t domain.Tag
	var seeded int
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.Category, &t.RequiresPermission, &seeded, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	t.Seeded = seeded != 0
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if t.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
