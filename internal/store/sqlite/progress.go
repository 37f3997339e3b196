package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dustbooks/dust-server/internal/domain"
)

func (s *Store) GetProgress(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	return scanProgress(s.db.QueryRowContext(ctx, progressSelect+` WHERE user_id = ? AND book_id = ?`, userID, bookID))
}

func (s *Store) UpsertProgress(ctx context.Context, p *domain.ReadingProgress) error {
	return withRetry(func() error {
		var totalPages sql.NullInt64
		if p.TotalPages != nil {
			totalPages = sql.NullInt64{Int64: int64(*p.TotalPages), Valid: true}
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO reading_progress (user_id, book_id, current_page, total_pages, percentage_complete,
				last_read_at, started_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, book_id) DO UPDATE SET
				current_page = excluded.current_page,
				total_pages = excluded.total_pages,
				percentage_complete = excluded.percentage_complete,
				last_read_at = excluded.last_read_at,
				started_at = COALESCE(reading_progress.started_at, excluded.started_at),
				completed_at = excluded.completed_at`,
			p.UserID, p.BookID, p.CurrentPage, totalPages, p.PercentageComplete,
			formatTime(p.LastReadAt), formatNullableTime(p.StartedAt), formatNullableTime(p.CompletedAt))
		return err
	})
}

func (s *Store) RecentProgress(ctx context.Context, userID string, limit int) ([]*domain.ReadingProgress, error) {
	rows, err := s.db.QueryContext(ctx, progressSelect+` WHERE user_id = ? ORDER BY last_read_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProgressRows(rows)
}

func (s *Store) CurrentlyReading(ctx context.Context, userID string) ([]*domain.ReadingProgress, error) {
	rows, err := s.db.QueryContext(ctx, progressSelect+` WHERE user_id = ? AND completed_at IS NULL AND started_at IS NOT NULL ORDER BY last_read_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProgressRows(rows)
}

func (s *Store) Completed(ctx context.Context, userID string) ([]*domain.ReadingProgress, error) {
	rows, err := s.db.QueryContext(ctx, progressSelect+` WHERE user_id = ? AND completed_at IS NOT NULL ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProgressRows(rows)
}

// ActiveDays returns the distinct calendar days (server timezone) of the
// user's progress rows, for streak calculation. Each (user, book) row keeps
// only its latest last_read_at, so a day whose updates were all followed
// by a later update to the same book is not returned.
func (s *Store) ActiveDays(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date(last_read_at, 'localtime') FROM reading_progress WHERE user_id = ? ORDER BY date(last_read_at, 'localtime') DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		t, err := time.ParseInLocation("2006-01-02", day, time.Local)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteProgressForBook(ctx context.Context, bookID string) error {
	return withRetry(func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM reading_progress WHERE book_id = ?`, bookID)
		return err
	})
}

const progressSelect = `SELECT user_id, book_id, current_page, total_pages, percentage_complete, last_read_at, started_at, completed_at FROM reading_progress`

func scanProgress(row *sql.Row) (*domain.ReadingProgress, error) {
	p, err := scanProgressRow(row)
	if err != nil {
		if isNoRows(err) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan progress: %w", err)
	}
	return p, nil
}

func scanProgressRow(row rowScanner) (*domain.ReadingProgress, error) {
	var p domain.ReadingProgress
	var totalPages sql.NullInt64
	var lastReadAt string
	var startedAt, completedAt sql.NullString
	if err := row.Scan(&p.UserID, &p.BookID, &p.CurrentPage, &totalPages, &p.PercentageComplete,
		&lastReadAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	if totalPages.Valid {
		v := int(totalPages.Int64)
		p.TotalPages = &v
	}
	var err error
	if p.LastReadAt, err = parseTime(lastReadAt); err != nil {
		return nil, err
	}
	if p.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, err
	}
	if p.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProgressRows(rows *sql.Rows) ([]*domain.ReadingProgress, error) {
	var out []*domain.ReadingProgress
	for rows.Next() {
		p, err := scanProgressRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
