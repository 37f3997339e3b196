package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/dustbooks/dust-server/internal/domain"
)

// autoTag always applies a format tag and applies any configured genre
// rule whose substring matches the file path (case-insensitive). Rows
// created here set auto_applied = true.
func (s *Scanner) autoTag(ctx context.Context, b *domain.Book, path string) error {
	formatTagName := strings.ToUpper(b.FileFormat)
	if err := s.applyTagByName(ctx, b.ID, formatTagName); err != nil {
		return err
	}

	lowerPath := strings.ToLower(path)
	for _, rule := range s.rules {
		if strings.Contains(lowerPath, strings.ToLower(rule.Substring)) {
			if err := s.applyTagByName(ctx, b.ID, rule.TagName); err != nil {
				s.log.WithError(err).WithField("tag", rule.TagName).Warn("apply genre tag failed")
			}
		}
	}
	return nil
}

func (s *Scanner) applyTagByName(ctx context.Context, bookID, tagName string) error {
	tag, err := s.store.GetTagByName(ctx, tagName)
	if err != nil {
		return err
	}
	return s.store.ApplyTag(ctx, &domain.BookTag{
		BookID:      bookID,
		TagID:       tag.ID,
		AutoApplied: true,
		AppliedAt:   time.Now(),
	})
}

// ReconcileArchive runs the archive reconciliation pass described in spec
// §4.6: active books whose file vanished are archived with reason "file
// missing"; archived books whose file reappeared are restored; books
// archived beyond the retention window are hard-deleted along with their
// dependent rows.
func (s *Scanner) ReconcileArchive(ctx context.Context) error {
	if err := s.archiveMissing(ctx); err != nil {
		return err
	}
	if err := s.restoreReappeared(ctx); err != nil {
		return err
	}
	return s.purgeExpiredArchives(ctx)
}

func (s *Scanner) archiveMissing(ctx context.Context) error {
	paths, err := s.store.ListActiveBookPaths(ctx)
	if err != nil {
		return err
	}
	for path, bookID := range paths {
		if fileExists(path) {
			continue
		}
		b, err := s.store.GetBook(ctx, bookID)
		if err != nil {
			s.log.WithError(err).WithField("book_id", bookID).Warn("load book for archival failed")
			continue
		}
		b.Archive("file missing")
		if err := s.store.UpdateBook(ctx, b); err != nil {
			s.log.WithError(err).WithField("book_id", bookID).Warn("archive book failed")
		}
	}
	return nil
}

func (s *Scanner) restoreReappeared(ctx context.Context) error {
	archived, err := s.store.ListArchivedBefore(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, b := range archived {
		if b.ArchiveReason != "file missing" {
			continue
		}
		if !fileExists(b.FilePath) {
			continue
		}
		b.Unarchive()
		if err := s.store.UpdateBook(ctx, b); err != nil {
			s.log.WithError(err).WithField("book_id", b.ID).Warn("unarchive book failed")
		}
	}
	return nil
}

func (s *Scanner) purgeExpiredArchives(ctx context.Context) error {
	cutoff := time.Now().Add(-s.retention)
	expired, err := s.store.ListArchivedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, b := range expired {
		if err := s.store.DeleteProgressForBook(ctx, b.ID); err != nil {
			s.log.WithError(err).WithField("book_id", b.ID).Warn("delete progress before purge failed")
			continue
		}
		if err := s.store.HardDeleteBook(ctx, b.ID); err != nil {
			s.log.WithError(err).WithField("book_id", b.ID).Warn("hard delete book failed")
		}
	}
	return nil
}
