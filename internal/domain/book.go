package domain

import (
	"strings"
	"time"
)

// BookStatus is the lifecycle state of a Book. Archiving is reversible;
// deletion is terminal.
type BookStatus string

const (
	BookStatusActive   BookStatus = "active"
	BookStatusArchived BookStatus = "archived"
	BookStatusDeleted  BookStatus = "deleted"
)

// Book is a single indexed file in the library. FilePath uniquely
// identifies a book; re-scanning the same path never creates a duplicate
// (see internal/scanner).
type Book struct {
	Syncable
	Name            string     `json:"name"`
	AuthorID        string     `json:"author_id"`
	FilePath        string     `json:"file_path"`
	FileFormat      string     `json:"file_format"`
	FileSize        int64      `json:"file_size"`
	ISBN            string     `json:"isbn,omitempty"`
	Description     string     `json:"description,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	PublicationDate string     `json:"publication_date,omitempty"`
	PageCount       int        `json:"page_count,omitempty"`
	CoverImagePath  string     `json:"cover_image_path,omitempty"`
	Status          BookStatus `json:"status"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	ArchiveReason   string     `json:"archive_reason,omitempty"`
}

// IsActive reports whether the book is currently visible to indexing and
// listing operations.
func (b *Book) IsActive() bool {
	return b.Status == BookStatusActive
}

// Archive transitions the book to archived, recording why and when. Safe
// to call on an already-archived book (idempotent reason overwrite).
func (b *Book) Archive(reason string) {
	now := time.Now()
	b.Status = BookStatusArchived
	b.ArchivedAt = &now
	b.ArchiveReason = reason
	b.Touch()
}

// Unarchive reverses Archive, clearing the archive fields.
func (b *Book) Unarchive() {
	b.Status = BookStatusActive
	b.ArchivedAt = nil
	b.ArchiveReason = ""
	b.Touch()
}

// SupportedExtensions lists the file extensions (without dot, lowercase)
// the indexer treats as candidate book files.
var SupportedExtensions = []string{"epub", "pdf", "mobi", "azw", "azw3", "cbz", "cbr", "djvu"}

// IsSupportedExtension reports whether ext (no leading dot, any case) is a
// format the indexer will pick up.
func IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
