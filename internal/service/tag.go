package service

import (
	"context"
	"time"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/id"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/store"
)

// TagService manages the tag catalog and per-user tag preferences.
type TagService struct {
	store store.Store
	log   *logger.Logger
}

// NewTagService builds a TagService.
func NewTagService(st store.Store, log *logger.Logger) *TagService {
	return &TagService{store: st, log: log.Named("tag_service")}
}

// List returns the full tag catalog.
func (s *TagService) List(ctx context.Context) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx)
}

// ListCategories returns the distinct tag categories present in the
// catalog, e.g. "genre", "format", "content-rating".
func (s *TagService) ListCategories(ctx context.Context) ([]string, error) {
	return s.store.ListCategories(ctx)
}

// Create adds a new, non-seeded tag to the catalog. Requires the caller to
// already hold tags.manage; enforced at the HTTP layer.
func (s *TagService) Create(ctx context.Context, name, category, requiresPermission string) (*domain.Tag, error) {
	if name == "" {
		return nil, apperr.Validation("tag name is required")
	}
	now := time.Now()
	t := &domain.Tag{
		Syncable:           domain.Syncable{ID: id.MustGenerate("tag"), CreatedAt: now, UpdatedAt: now},
		Name:               name,
		Category:           category,
		RequiresPermission: requiresPermission,
	}
	if err := s.store.CreateTag(ctx, t); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConflict, "tag already exists")
	}
	return t, nil
}

// Delete removes a non-seeded tag, cascading to book_tags but never
// touching the books it was applied to.
func (s *TagService) Delete(ctx context.Context, tagID string) error {
	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		return apperr.NotFound("tag not found or is seeded")
	}
	return nil
}

// SetUserPreference records userID's explicit allow/deny override for a
// tag, layered over permission-based gating.
func (s *TagService) SetUserPreference(ctx context.Context, userID, tagID string, mode domain.TagPreferenceMode) error {
	pref := &domain.UserTagPreference{
		UserID:    userID,
		TagID:     tagID,
		State:     mode,
		UpdatedAt: time.Now(),
	}
	if err := s.store.SetUserTagPreference(ctx, pref); err != nil {
		return apperr.Storage(err)
	}
	return nil
}
