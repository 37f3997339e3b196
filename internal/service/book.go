// Package service implements the domain services layered over the store
// and access packages: one service per entity family, enforcing rules not
// captured by schema constraints.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustbooks/dust-server/internal/access"
	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/metadata"
	"github.com/dustbooks/dust-server/internal/store"
)

// BookService exposes book operations, routing every user-facing read
// through the tag & permission engine.
type BookService struct {
	store     store.Store
	log       *logger.Logger
	enricher  metadata.Enricher
	roots     []string
}

// NewBookService builds a BookService. roots are the configured library
// directories, used for path-safety checks on stream.
func NewBookService(st store.Store, log *logger.Logger, enricher metadata.Enricher, roots []string) *BookService {
	if enricher == nil {
		enricher = metadata.NullEnricher{}
	}
	return &BookService{store: st, log: log.Named("book_service"), enricher: enricher, roots: roots}
}

// List returns books visible to userID matching filter.
func (s *BookService) List(ctx context.Context, userID string, filter store.BookFilter) ([]*domain.Book, error) {
	return access.VisibleBooks(ctx, s.store, userID, filter)
}

// Get returns a single book if it is visible to userID.
func (s *BookService) Get(ctx context.Context, userID, id string) (*domain.Book, error) {
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("book not found")
	}
	visible, err := access.BookVisible(ctx, s.store, userID, b)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if !visible {
		return nil, apperr.NotFound("book not found")
	}
	return b, nil
}

// OpenForStream resolves the book and returns an *os.File positioned at
// the start, having verified the path lies under a configured library
// root. Callers are responsible for closing the file.
func (s *BookService) OpenForStream(ctx context.Context, userID, id string) (*domain.Book, *os.File, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	canonical, err := filepath.Abs(b.FilePath)
	if err != nil {
		return nil, nil, apperr.NotFound("book not found")
	}
	if !s.underLibraryRoot(canonical) {
		// Never leak whether the underlying path exists.
		return nil, nil, apperr.NotFound("book not found")
	}

	f, err := os.Open(canonical)
	if err != nil {
		return nil, nil, apperr.NotFound("book not found")
	}
	return b, f, nil
}

func (s *BookService) underLibraryRoot(path string) bool {
	for _, root := range s.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)) {
			return true
		}
	}
	return false
}

// Archive transitions a book to archived with the given reason. This is
// an administrative operation; callers must have already checked the
// required permission.
func (s *BookService) Archive(ctx context.Context, bookID, reason string) error {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return apperr.NotFound("book not found")
	}
	b.Archive(reason)
	if err := s.store.UpdateBook(ctx, b); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Unarchive reverses Archive.
func (s *BookService) Unarchive(ctx context.Context, bookID string) error {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return apperr.NotFound("book not found")
	}
	b.Unarchive()
	if err := s.store.UpdateBook(ctx, b); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// RefreshMetadata re-runs ISBN-based enrichment for a book, explicitly
// overwriting the derived fields (unlike the passive scan path, which
// never clobbers existing values).
func (s *BookService) RefreshMetadata(ctx context.Context, bookID string) error {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return apperr.NotFound("book not found")
	}
	if b.ISBN == "" {
		return apperr.Validation("book has no ISBN to enrich from")
	}

	fields, err := s.enricher.Lookup(ctx, b.ISBN)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeIO, "metadata enrichment failed")
	}

	if fields.Description != "" {
		b.Description = fields.Description
	}
	if fields.Publisher != "" {
		b.Publisher = fields.Publisher
	}
	if fields.PublicationDate != "" {
		b.PublicationDate = fields.PublicationDate
	}
	if fields.PageCount > 0 {
		b.PageCount = fields.PageCount
	}
	b.Touch()

	if err := s.store.UpdateBook(ctx, b); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// StreamRange copies [start, end] inclusive bytes of f to w in fixed-size
// chunks, never buffering the whole file.
func StreamRange(w io.Writer, f *os.File, start, end int64) error {
	const chunkSize = 64 * 1024
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	remaining := end - start + 1
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := f.Read(buf[:n])
		if read > 0 {
			if _, werr := w.Write(buf[:read]); werr != nil {
				return werr
			}
			remaining -= int64(read)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	return nil
}
