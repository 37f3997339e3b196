package service

import (
	"context"
	"time"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/store"
)

// ProgressService tracks and aggregates reading progress.
type ProgressService struct {
	store store.Store
	log   *logger.Logger
}

// NewProgressService builds a ProgressService.
func NewProgressService(st store.Store, log *logger.Logger) *ProgressService {
	return &ProgressService{store: st, log: log.Named("progress_service")}
}

// Get returns a user's progress on a book, or a NotFound error if none is
// recorded.
func (s *ProgressService) Get(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	p, err := s.store.GetProgress(ctx, userID, bookID)
	if err != nil {
		return nil, apperr.NotFound("no progress recorded")
	}
	return p, nil
}

// Update records a new reading position. percentage_complete is
// recomputed whenever totalPages is known; last_read_at is set to server
// time. If this is the first update for the pair, started_at is set too.
func (s *ProgressService) Update(ctx context.Context, userID, bookID string, currentPage int, totalPages *int) (*domain.ReadingProgress, error) {
	p, err := s.store.GetProgress(ctx, userID, bookID)
	now := time.Now()
	if err != nil {
		p = &domain.ReadingProgress{UserID: userID, BookID: bookID, StartedAt: &now}
	}
	p.CurrentPage = currentPage
	if totalPages != nil {
		p.TotalPages = totalPages
	}
	p.LastReadAt = now
	p.Recompute()

	if err := s.store.UpsertProgress(ctx, p); err != nil {
		return nil, apperr.Storage(err)
	}
	return p, nil
}

// Start marks a book as begun without changing the current page.
func (s *ProgressService) Start(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	p, err := s.store.GetProgress(ctx, userID, bookID)
	now := time.Now()
	if err != nil {
		p = &domain.ReadingProgress{UserID: userID, BookID: bookID}
	}
	if p.StartedAt == nil {
		p.StartedAt = &now
	}
	p.LastReadAt = now
	if err := s.store.UpsertProgress(ctx, p); err != nil {
		return nil, apperr.Storage(err)
	}
	return p, nil
}

// Complete marks a book finished, setting current_page to total_pages
// when known.
func (s *ProgressService) Complete(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	p, err := s.store.GetProgress(ctx, userID, bookID)
	now := time.Now()
	if err != nil {
		p = &domain.ReadingProgress{UserID: userID, BookID: bookID, StartedAt: &now}
	}
	if p.TotalPages != nil {
		p.CurrentPage = *p.TotalPages
	}
	p.CompletedAt = &now
	p.LastReadAt = now
	p.Recompute()
	if p.CompletedAt != nil && p.TotalPages != nil {
		p.PercentageComplete = 100
	}
	if err := s.store.UpsertProgress(ctx, p); err != nil {
		return nil, apperr.Storage(err)
	}
	return p, nil
}

// Reset clears progress back to the start, keeping the row (so history of
// the pair having been touched is preserved via LastReadAt).
func (s *ProgressService) Reset(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	p := &domain.ReadingProgress{
		UserID:     userID,
		BookID:     bookID,
		LastReadAt: time.Now(),
	}
	if err := s.store.UpsertProgress(ctx, p); err != nil {
		return nil, apperr.Storage(err)
	}
	return p, nil
}

// Recent returns the user's most recently touched progress rows.
func (s *ProgressService) Recent(ctx context.Context, userID string, limit int) ([]*domain.ReadingProgress, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.RecentProgress(ctx, userID, limit)
}

// CurrentlyReading returns in-progress, not-yet-completed books.
func (s *ProgressService) CurrentlyReading(ctx context.Context, userID string) ([]*domain.ReadingProgress, error) {
	return s.store.CurrentlyReading(ctx, userID)
}

// Completed returns finished books.
func (s *ProgressService) Completed(ctx context.Context, userID string) ([]*domain.ReadingProgress, error) {
	return s.store.Completed(ctx, userID)
}

// Stats aggregates a user's reading activity, including the trailing
// daily streak.
func (s *ProgressService) Stats(ctx context.Context, userID string) (*domain.ReadingStats, error) {
	current, err := s.store.CurrentlyReading(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	completed, err := s.store.Completed(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	days, err := s.store.ActiveDays(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	return &domain.ReadingStats{
		BooksStarted:   len(current) + len(completed),
		BooksCompleted: len(completed),
		StreakDays:     computeStreak(days),
	}, nil
}

// computeStreak returns the length of the longest trailing run of distinct
// calendar days, terminating at today. days may come in any order and may
// repeat; each calendar day is counted once.
func computeStreak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}

	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d.Format("2006-01-02")] = true
	}

	today := time.Now()
	streak := 0
	for {
		key := today.AddDate(0, 0, -streak).Format("2006-01-02")
		if !set[key] {
			break
		}
		streak++
	}
	return streak
}
