package service

import (
	"context"

	"github.com/dustbooks/dust-server/internal/access"
	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/store"
)

// AuthorService exposes author listings. Detail views include only the
// books visible to the requesting user; totals reflect that filtered set.
type AuthorService struct {
	store store.Store
	log   *logger.Logger
}

// NewAuthorService builds an AuthorService.
func NewAuthorService(st store.Store, log *logger.Logger) *AuthorService {
	return &AuthorService{store: st, log: log.Named("author_service")}
}

// List returns every author. Author rows carry no visibility gating
// themselves; gating applies to the books beneath them.
func (s *AuthorService) List(ctx context.Context, userID string) ([]*domain.Author, error) {
	return s.store.ListAuthors(ctx)
}

// AuthorDetail is an author plus the books visible to the requesting user.
type AuthorDetail struct {
	Author *domain.Author
	Books  []*domain.Book
}

// Get returns author detail scoped to the books userID may see.
func (s *AuthorService) Get(ctx context.Context, userID, authorID string) (*AuthorDetail, error) {
	author, err := s.store.GetAuthor(ctx, authorID)
	if err != nil {
		return nil, apperr.NotFound("author not found")
	}

	books, err := access.VisibleBooks(ctx, s.store, userID, store.BookFilter{AuthorID: authorID})
	if err != nil {
		return nil, apperr.Storage(err)
	}

	return &AuthorDetail{Author: author, Books: books}, nil
}
