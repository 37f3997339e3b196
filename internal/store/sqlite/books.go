package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/store"
)

func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO books (id, name, author_id, file_path, file_format, file_size, isbn, description,
				publisher, publication_date, page_count, cover_image_path, status, archived_at, archive_reason,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Name, b.AuthorID, b.FilePath, b.FileFormat, b.FileSize, b.ISBN, b.Description,
			b.Publisher, b.PublicationDate, b.PageCount, b.CoverImagePath, string(b.Status),
			formatNullableTime(b.ArchivedAt), b.ArchiveReason, formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
		return err
	})
}

func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return scanBook(s.db.QueryRowContext(ctx, bookSelect+` WHERE id = ? AND deleted_at IS NULL`, id))
}

func (s *Store) GetBookByPath(ctx context.Context, path string) (*domain.Book, error) {
	return scanBook(s.db.QueryRowContext(ctx, bookSelect+` WHERE file_path = ? AND deleted_at IS NULL`, path))
}

func (s *Store) UpdateBook(ctx context.Context, b *domain.Book) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE books SET name = ?, author_id = ?, file_format = ?, file_size = ?, isbn = ?, description = ?,
				publisher = ?, publication_date = ?, page_count = ?, cover_image_path = ?, status = ?,
				archived_at = ?, archive_reason = ?, updated_at = ?
			WHERE id = ?`,
			b.Name, b.AuthorID, b.FileFormat, b.FileSize, b.ISBN, b.Description, b.Publisher,
			b.PublicationDate, b.PageCount, b.CoverImagePath, string(b.Status),
			formatNullableTime(b.ArchivedAt), b.ArchiveReason, formatTime(b.UpdatedAt), b.ID)
		return err
	})
}

// ListBooks lists books matching filter. It does not apply tag-permission
// visibility gating — callers go through internal/access.VisibleBooks for
// any user-facing listing.
func (s *Store) ListBooks(ctx context.Context, filter store.BookFilter) ([]*domain.Book, error) {
	query := strings.Builder{}
	query.WriteString(bookSelect + ` WHERE deleted_at IS NULL`)
	var args []any

	if filter.Status != "" {
		query.WriteString(` AND status = ?`)
		args = append(args, string(filter.Status))
	}
	if filter.AuthorID != "" {
		query.WriteString(` AND author_id = ?`)
		args = append(args, filter.AuthorID)
	}
	if filter.Search != "" {
		query.WriteString(` AND name LIKE ?`)
		args = append(args, "%"+filter.Search+"%")
	}
	for _, t := range filter.IncludeTags {
		query.WriteString(` AND id IN (SELECT book_id FROM book_tags bt JOIN tags tg ON tg.id = bt.tag_id WHERE tg.name = ?)`)
		args = append(args, t)
	}
	for _, t := range filter.ExcludeTags {
		query.WriteString(` AND id NOT IN (SELECT book_id FROM book_tags bt JOIN tags tg ON tg.id = bt.tag_id WHERE tg.name = ?)`)
		args = append(args, t)
	}

	query.WriteString(` ORDER BY name ASC`)
	if filter.Limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query.WriteString(` OFFSET ?`)
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Book
	for rows.Next() {
		b, err := scanBookRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListActiveBookPaths returns every active book's file path mapped to its
// ID, for the indexer to diff against the filesystem walk without loading
// full rows.
func (s *Store) ListActiveBookPaths(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, id FROM books WHERE status = ? AND deleted_at IS NULL`, string(domain.BookStatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var path, id string
		if err := rows.Scan(&path, &id); err != nil {
			return nil, err
		}
		out[path] = id
	}
	return out, rows.Err()
}

func (s *Store) ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, bookSelect+` WHERE status = ? AND archived_at < ? AND deleted_at IS NULL`,
		string(domain.BookStatusArchived), formatTime(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Book
	for rows.Next() {
		b, err := scanBookRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HardDeleteBook permanently removes a book and its dependent rows
// (book_tags, reading_progress) via ON DELETE CASCADE.
func (s *Store) HardDeleteBook(ctx context.Context, id string) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
		return err
	})
}

const bookSelect = `SELECT id, name, author_id, file_path, file_format, file_size, isbn, description,
	publisher, publication_date, page_count, cover_image_path, status, archived_at, archive_reason,
	created_at, updated_at, deleted_at FROM books`

func scanBook(row *sql.Row) (*domain.Book, error) {
	b, err := scanBookRow(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return b, nil
}

func scanBookRow(row rowScanner) (*domain.Book, error) {
	var b domain.Book
	var status, createdAt, updatedAt string
	var archivedAt, deletedAt sql.NullString
	if err := row.Scan(&b.ID, &b.Name, &b.AuthorID, &b.FilePath, &b.FileFormat, &b.FileSize, &b.ISBN,
		&b.Description, &b.Publisher, &b.PublicationDate, &b.PageCount, &b.CoverImagePath, &status,
		&archivedAt, &b.ArchiveReason, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	b.Status = domain.BookStatus(status)
	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if b.ArchivedAt, err = parseNullableTime(archivedAt); err != nil {
		return nil, err
	}
	if b.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
