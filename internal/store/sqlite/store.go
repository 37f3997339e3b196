// Package sqlite provides a modernc.org/sqlite-backed implementation of
// the store.Store contract.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/dustbooks/dust-server/internal/logger"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistence layer. The embedded engine is
// used in serialized mode: one writer at a time, readers coexist with the
// writer through the engine's own locking.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open opens (or creates) the database at path, configures pragmas for a
// single-writer/many-reader workload, and applies any pending migrations.
func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite only supports one writer; keep the pool small so contention
	// surfaces as SQLITE_BUSY rather than as silently queued connections.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, logger: log.Named("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// busyRetryLimit and busyRetryCap bound the exponential backoff applied to
// transient SQLITE_BUSY errors from concurrent writers.
const (
	busyRetryLimit = 5
	busyRetryCap   = 250 * time.Millisecond
)

// withRetry runs fn, retrying with bounded exponential backoff when the
// underlying error indicates transient locking contention. Constraint
// violations and any other error are returned immediately.
func withRetry(fn func() error) error {
	var err error
	backoff := 5 * time.Millisecond
	for attempt := 0; attempt <= busyRetryLimit; attempt++ {
		err = fn()
		if err == nil || !isBusyErr(err) {
			return err
		}
		if attempt == busyRetryLimit {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(backoff)))
		time.Sleep(backoff + jitter)
		backoff *= 2
		if backoff > busyRetryCap {
			backoff = busyRetryCap
		}
	}
	return err
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts the RFC 3339 text written by formatTime and the
// "YYYY-MM-DD HH:MM:SS" UTC text that datetime('now') writes for seeded rows.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if seeded, seedErr := time.Parse("2006-01-02 15:04:05", s); seedErr == nil {
			return seeded, nil
		}
	}
	return t, err
}

func formatNullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// errNotFound is returned internally when a row lookup misses; callers
// translate it to apperr.NotFound at the service boundary.
var errNotFound = errors.New("not found")

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
