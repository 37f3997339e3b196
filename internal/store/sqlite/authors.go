package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dustbooks/dust-server/internal/domain"
)

// GetOrCreateAuthor looks up an author by normalized name, inserting a new
// row if none exists. The indexer is the only caller that creates authors
// implicitly; admin enrichment happens afterward via UpdateAuthor-style
// service calls layered on top of the store.
func (s *Store) GetOrCreateAuthor(ctx context.Context, name, normalized string) (*domain.Author, error) {
	var a *domain.Author
	err := withRetry(func() error {
		existing, err := scanAuthor(s.db.QueryRowContext(ctx, authorSelect+` WHERE normalized_name = ?`, normalized))
		if err == nil {
			a = existing
			return nil
		}
		if err != errNotFound {
			return err
		}

		now := nowUTC()
		id := "auth_" + normalized
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO authors (id, name, normalized_name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(normalized_name) DO NOTHING`,
			id, name, normalized, formatTime(now), formatTime(now))
		if err != nil {
			return err
		}
		created, err := scanAuthor(s.db.QueryRowContext(ctx, authorSelect+` WHERE normalized_name = ?`, normalized))
		if err != nil {
			return err
		}
		a = created
		return nil
	})
	return a, err
}

func (s *Store) GetAuthor(ctx context.Context, id string) (*domain.Author, error) {
	return scanAuthor(s.db.QueryRowContext(ctx, authorSelect+` WHERE id = ? AND deleted_at IS NULL`, id))
}

func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	rows, err := s.db.QueryContext(ctx, authorSelect+` WHERE deleted_at IS NULL ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Author
	for rows.Next() {
		a, err := scanAuthorRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const authorSelect = `SELECT id, name, normalized_name, biography, birth_year, death_year, url, created_at, updated_at, deleted_at FROM authors`

func scanAuthor(row *sql.Row) (*domain.Author, error) {
	a, err := scanAuthorRow(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan author: %w", err)
	}
	return a, nil
}

func scanAuthorRow(row rowScanner) (*domain.Author, error) {
	var a domain.Author
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	if err := row.Scan(&a.ID, &a.Name, &a.NormalizedName, &a.Biography, &a.BirthYear, &a.DeathYear, &a.URL,
		&createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if a.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
