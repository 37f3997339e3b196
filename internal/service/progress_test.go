package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/id"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/store"
	"github.com/dustbooks/dust-server/internal/store/sqlite"
)

func setupProgressTest(t *testing.T) (*ProgressService, store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	log := logger.New(logger.Config{Writer: io.Discard})
	st, err := sqlite.Open(dbPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewProgressService(st, log), st
}

// fixtureBook inserts a book owned by an author, returning the book id, so
// progress rows have a valid foreign key to reference.
func fixtureBook(t *testing.T, st store.Store) string {
	t.Helper()
	ctx := context.Background()
	author, err := st.GetOrCreateAuthor(ctx, "Test Author", "test-author")
	require.NoError(t, err)
	b := &domain.Book{
		Syncable:   domain.Syncable{ID: id.MustGenerate("book")},
		Name:       "Test Book",
		AuthorID:   author.ID,
		FilePath:   "/library/test-book.epub",
		FileFormat: "epub",
		Status:     domain.BookStatusActive,
	}
	require.NoError(t, st.CreateBook(ctx, b))
	return b.ID
}

func fixtureUser(t *testing.T, st store.Store) string {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{
		Syncable:     domain.Syncable{ID: id.MustGenerate("user")},
		Username:     "reader",
		Email:        "reader@example.com",
		PasswordHash: "unused",
		IsActive:     true,
	}
	require.NoError(t, st.CreateUser(ctx, u))
	return u.ID
}

// TestUpdate_RecomputesPercentage covers testable property 9: updating
// (current_page=50, total_pages=200) yields percentage_complete = 25.0.
func TestUpdate_RecomputesPercentage(t *testing.T) {
	svc, st := setupProgressTest(t)
	userID := fixtureUser(t, st)
	bookID := fixtureBook(t, st)

	totalPages := 200
	p, err := svc.Update(context.Background(), userID, bookID, 50, &totalPages)
	require.NoError(t, err)
	assert.Equal(t, 25.0, p.PercentageComplete)
	assert.Equal(t, 50, p.CurrentPage)
	assert.NotNil(t, p.StartedAt, "first update on a pair marks it started")
}

// TestComplete_SetsCurrentPageToTotalAndFullPercentage covers testable
// property 9's completion edge case: current_page is set to total_pages
// when known, and percentage_complete becomes 100.0.
func TestComplete_SetsCurrentPageToTotalAndFullPercentage(t *testing.T) {
	svc, st := setupProgressTest(t)
	ctx := context.Background()
	userID := fixtureUser(t, st)
	bookID := fixtureBook(t, st)

	totalPages := 200
	_, err := svc.Update(ctx, userID, bookID, 50, &totalPages)
	require.NoError(t, err)

	p, err := svc.Complete(ctx, userID, bookID)
	require.NoError(t, err)
	assert.Equal(t, 200, p.CurrentPage)
	assert.Equal(t, 100.0, p.PercentageComplete)
	assert.NotNil(t, p.CompletedAt)
}

func TestComplete_WithoutKnownTotalPagesLeavesCurrentPageUnchanged(t *testing.T) {
	svc, st := setupProgressTest(t)
	ctx := context.Background()
	userID := fixtureUser(t, st)
	bookID := fixtureBook(t, st)

	_, err := svc.Update(ctx, userID, bookID, 50, nil)
	require.NoError(t, err)

	p, err := svc.Complete(ctx, userID, bookID)
	require.NoError(t, err)
	assert.Equal(t, 50, p.CurrentPage, "total_pages unknown: current_page is not fabricated")
	assert.NotNil(t, p.CompletedAt)
}

func TestUpdate_PercentageClampedToHundred(t *testing.T) {
	svc, st := setupProgressTest(t)
	userID := fixtureUser(t, st)
	bookID := fixtureBook(t, st)

	totalPages := 100
	p, err := svc.Update(context.Background(), userID, bookID, 500, &totalPages)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.PercentageComplete)
}

func TestReset_ClearsProgress(t *testing.T) {
	svc, st := setupProgressTest(t)
	ctx := context.Background()
	userID := fixtureUser(t, st)
	bookID := fixtureBook(t, st)

	totalPages := 200
	_, err := svc.Update(ctx, userID, bookID, 50, &totalPages)
	require.NoError(t, err)

	p, err := svc.Reset(ctx, userID, bookID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.CurrentPage)
	assert.Nil(t, p.TotalPages)
	assert.Nil(t, p.StartedAt)
}

func TestCurrentlyReading_ExcludesCompleted(t *testing.T) {
	svc, st := setupProgressTest(t)
	ctx := context.Background()
	userID := fixtureUser(t, st)
	bookID := fixtureBook(t, st)

	_, err := svc.Start(ctx, userID, bookID)
	require.NoError(t, err)

	current, err := svc.CurrentlyReading(ctx, userID)
	require.NoError(t, err)
	require.Len(t, current, 1)

	_, err = svc.Complete(ctx, userID, bookID)
	require.NoError(t, err)

	current, err = svc.CurrentlyReading(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, current)

	completed, err := svc.Completed(ctx, userID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
}
