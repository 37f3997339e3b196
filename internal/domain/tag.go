package domain

import "time"

// Tag is a label applied to books, either by an admin or automatically by
// the indexer (auto-applied format/genre tags). A tag may gate visibility
// by naming a RequiresPermission that a user must hold to see books
// carrying it (see internal/access).
type Tag struct {
	Syncable
	Name               string `json:"name"`
	Category           string `json:"category"` // e.g. "genre", "content-rating", "format"
	RequiresPermission string `json:"requires_permission,omitempty"`
	Seeded             bool   `json:"seeded"` // seeded tags cannot be deleted via the API
}

// BookTag is the book ↔ tag association row.
type BookTag struct {
	BookID      string    `json:"book_id"`
	TagID       string    `json:"tag_id"`
	AppliedBy   string    `json:"applied_by,omitempty"` // user ID, empty if auto-applied
	AutoApplied bool      `json:"auto_applied"`
	AppliedAt   time.Time `json:"applied_at"`
}

// Seeded tag categories.
const (
	TagCategoryGenre    = "genre"
	TagCategoryFormat   = "format"
	TagCategoryRating   = "content-rating"
)

// GenreRule maps a filename/path substring to a genre tag name, used by
// the indexer to auto-tag books on ingestion (see internal/scanner).
type GenreRule struct {
	Substring string `json:"substring"`
	TagName   string `json:"tag_name"`
}
