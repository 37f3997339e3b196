package access_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dustbooks/dust-server/internal/access"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/id"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/store"
	"github.com/dustbooks/dust-server/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	log := logger.New(logger.Config{Writer: io.Discard})
	s, err := sqlite.Open(dbPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestUser creates a user carrying roleName and returns its id.
func newTestUser(t *testing.T, st store.Store, username, roleName string) string {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	u := &domain.User{
		Syncable:     domain.Syncable{ID: id.MustGenerate("user"), CreatedAt: now, UpdatedAt: now},
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "unused",
		IsActive:     true,
	}
	require.NoError(t, st.CreateUser(ctx, u))

	role, err := st.GetRoleByName(ctx, roleName)
	require.NoError(t, err)
	require.NoError(t, st.AssignUserRole(ctx, u.ID, role.ID))
	return u.ID
}

// newTestBook creates an active book, optionally tagged with tagName.
func newTestBook(t *testing.T, st store.Store, name, tagName string) *domain.Book {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	author, err := st.GetOrCreateAuthor(ctx, "Test Author", "test-author")
	require.NoError(t, err)

	b := &domain.Book{
		Syncable:   domain.Syncable{ID: id.MustGenerate("book"), CreatedAt: now, UpdatedAt: now},
		Name:       name,
		AuthorID:   author.ID,
		FilePath:   "/library/" + name + ".epub",
		FileFormat: "epub",
		Status:     domain.BookStatusActive,
	}
	require.NoError(t, st.CreateBook(ctx, b))

	if tagName != "" {
		tag, err := st.GetTagByName(ctx, tagName)
		require.NoError(t, err)
		require.NoError(t, st.ApplyTag(ctx, &domain.BookTag{BookID: b.ID, TagID: tag.ID, AppliedAt: now}))
	}
	return b
}

// TestVisibleBooks_TagGatedByPermission covers testable property 4: a book
// carrying a tag whose requires_permission the user lacks never appears in
// a visibility-filtered listing, but does for a user who holds it.
func TestVisibleBooks_TagGatedByPermission(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	gated := newTestBook(t, st, "Restricted Book", "Mature")
	open := newTestBook(t, st, "Open Book", "")

	member := newTestUser(t, st, "member-user", domain.RoleNameMember)
	admin := newTestUser(t, st, "admin-user", domain.RoleNameAdministrator)

	memberBooks, err := access.VisibleBooks(ctx, st, member, store.BookFilter{})
	require.NoError(t, err)
	var memberIDs []string
	for _, b := range memberBooks {
		memberIDs = append(memberIDs, b.ID)
	}
	require.Contains(t, memberIDs, open.ID)
	require.NotContains(t, memberIDs, gated.ID)

	adminBooks, err := access.VisibleBooks(ctx, st, admin, store.BookFilter{})
	require.NoError(t, err)
	var adminIDs []string
	for _, b := range adminBooks {
		adminIDs = append(adminIDs, b.ID)
	}
	require.Contains(t, adminIDs, open.ID)
	require.Contains(t, adminIDs, gated.ID)
}

func TestBookVisible_TagGatedByPermission(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	gated := newTestBook(t, st, "Restricted Book", "Mature")
	member := newTestUser(t, st, "member-user", domain.RoleNameMember)
	admin := newTestUser(t, st, "admin-user", domain.RoleNameAdministrator)

	visible, err := access.BookVisible(ctx, st, member, gated)
	require.NoError(t, err)
	require.False(t, visible)

	visible, err = access.BookVisible(ctx, st, admin, gated)
	require.NoError(t, err)
	require.True(t, visible)
}

func TestBookVisible_ArchivedNeverVisible(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	b := newTestBook(t, st, "Archived Book", "")
	b.Archive("test")
	require.NoError(t, st.UpdateBook(ctx, b))

	admin := newTestUser(t, st, "admin-user", domain.RoleNameAdministrator)
	visible, err := access.BookVisible(ctx, st, admin, b)
	require.NoError(t, err)
	require.False(t, visible)
}

func TestVisibleBooks_UserTagPreferenceDenyOverridesPermission(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	open := newTestBook(t, st, "Open Book", "Fiction")
	admin := newTestUser(t, st, "admin-user", domain.RoleNameAdministrator)

	tag, err := st.GetTagByName(ctx, "Fiction")
	require.NoError(t, err)
	require.NoError(t, st.SetUserTagPreference(ctx, &domain.UserTagPreference{
		UserID: admin, TagID: tag.ID, State: domain.TagPreferenceDeny, UpdatedAt: time.Now(),
	}))

	books, err := access.VisibleBooks(ctx, st, admin, store.BookFilter{})
	require.NoError(t, err)
	for _, b := range books {
		require.NotEqual(t, open.ID, b.ID)
	}
}

func TestHasPermission(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	member := newTestUser(t, st, "member-user", domain.RoleNameMember)
	admin := newTestUser(t, st, "admin-user", domain.RoleNameAdministrator)

	ok, err := access.HasPermission(ctx, st, member, domain.PermMatureRead)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = access.HasPermission(ctx, st, admin, domain.PermMatureRead)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = access.HasPermission(ctx, st, member, domain.PermBooksRead)
	require.NoError(t, err)
	require.True(t, ok)
}
