// Package scanner indexes library directories into the store, keeping the
// Book table an idempotent reflection of what's on disk.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustbooks/dust-server/internal/cover"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/id"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/metadata"
	"github.com/dustbooks/dust-server/internal/store"
)

// DefaultArchiveRetention is used when the configured retention is zero.
const DefaultArchiveRetention = 365 * 24 * time.Hour

// Scanner walks configured library roots and reconciles the Book table
// against the filesystem.
type Scanner struct {
	store     store.Store
	log       *logger.Logger
	enricher  metadata.Enricher
	roots     []string
	rules     []domain.GenreRule
	retention time.Duration
}

// New builds a Scanner over the given library roots.
func New(st store.Store, log *logger.Logger, enricher metadata.Enricher, roots []string, rules []domain.GenreRule, retention time.Duration) *Scanner {
	if enricher == nil {
		enricher = metadata.NullEnricher{}
	}
	if retention <= 0 {
		retention = DefaultArchiveRetention
	}
	return &Scanner{
		store:     st,
		log:       log.Named("scanner"),
		enricher:  enricher,
		roots:     roots,
		rules:     rules,
		retention: retention,
	}
}

// Scan walks every configured root and ensures the Book table reflects
// what it finds. Per-file and per-root errors are logged and skipped; the
// walk always continues.
func (s *Scanner) Scan(ctx context.Context) error {
	for _, root := range s.roots {
		if err := s.scanRoot(ctx, root); err != nil {
			s.log.WithError(err).WithField("root", root).Warn("scan root failed, continuing to next root")
		}
	}
	return nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.WithError(err).WithField("path", path).Warn("walk error, skipping")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if !domain.IsSupportedExtension(ext) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			s.log.WithError(err).WithField("path", path).Warn("resolve absolute path failed, skipping")
			return nil
		}

		if err := s.indexFile(ctx, abs); err != nil {
			s.log.WithError(err).WithField("path", abs).Warn("index file failed, skipping")
		}
		return nil
	})
}

// indexFile is the per-file step of the operation described in spec §4.6:
// skip if already indexed and not deleted (existing metadata is
// authoritative), otherwise create the author, derive metadata, resolve
// the cover, and insert the book as active.
func (s *Scanner) indexFile(ctx context.Context, path string) error {
	existing, err := s.store.GetBookByPath(ctx, path)
	if err == nil {
		return s.refreshEmptyFields(ctx, existing, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	derived := metadata.Derive(path)
	normalized := metadata.NormalizeName(derived.AuthorName)
	author, err := s.store.GetOrCreateAuthor(ctx, derived.AuthorName, normalized)
	if err != nil {
		return err
	}

	coverPath := cover.Resolve(path)

	now := time.Now()
	book := &domain.Book{
		Syncable: domain.Syncable{ID: id.MustGenerate("book"), CreatedAt: now, UpdatedAt: now},
		Name:          derived.Title,
		AuthorID:      author.ID,
		FilePath:      path,
		FileFormat:    derived.FileFormat,
		FileSize:      info.Size(),
		ISBN:          derived.ISBN,
		CoverImagePath: coverPath,
		Status:        domain.BookStatusActive,
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return err
	}

	if err := s.autoTag(ctx, book, path); err != nil {
		s.log.WithError(err).WithField("book_id", book.ID).Warn("auto-tag failed")
	}

	if book.ISBN != "" {
		s.enrich(ctx, book)
	}

	return nil
}

// refreshEmptyFields optionally backfills file_size and cover_image_path
// when empty, without ever touching externally-edited metadata fields.
func (s *Scanner) refreshEmptyFields(ctx context.Context, b *domain.Book, path string) error {
	if b.Status == domain.BookStatusDeleted {
		return nil
	}
	changed := false
	if b.FileSize == 0 {
		if info, err := os.Stat(path); err == nil {
			b.FileSize = info.Size()
			changed = true
		}
	}
	if b.CoverImagePath == "" {
		if c := cover.Resolve(path); c != "" {
			b.CoverImagePath = c
			changed = true
		}
	}
	if !changed {
		return nil
	}
	b.Touch()
	return s.store.UpdateBook(ctx, b)
}

// enrich runs the configured Enricher for a book's ISBN and updates the
// row. Failures are logged and ignored; the ISBN is already persisted.
func (s *Scanner) enrich(ctx context.Context, b *domain.Book) {
	fields, err := s.enricher.Lookup(ctx, b.ISBN)
	if err != nil {
		s.log.WithError(err).WithField("book_id", b.ID).Debug("enrichment lookup failed")
		return
	}
	changed := false
	if fields.Description != "" && b.Description == "" {
		b.Description = fields.Description
		changed = true
	}
	if fields.Publisher != "" && b.Publisher == "" {
		b.Publisher = fields.Publisher
		changed = true
	}
	if fields.PublicationDate != "" && b.PublicationDate == "" {
		b.PublicationDate = fields.PublicationDate
		changed = true
	}
	if fields.PageCount > 0 && b.PageCount == 0 {
		b.PageCount = fields.PageCount
		changed = true
	}
	if !changed {
		return
	}
	b.Touch()
	if err := s.store.UpdateBook(ctx, b); err != nil {
		s.log.WithError(err).WithField("book_id", b.ID).Warn("persist enrichment failed")
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
