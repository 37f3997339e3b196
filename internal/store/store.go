// Package store defines the persistence contract. The Store owns all
// persistent state; every other component goes through it rather than
// touching the database directly.
package store

import (
	"context"
	"time"

	"github.com/dustbooks/dust-server/internal/domain"
)

// BookFilter narrows a book listing. Zero values mean "no constraint".
type BookFilter struct {
	AuthorID      string
	IncludeTags   []string
	ExcludeTags   []string
	Status        domain.BookStatus
	Search        string
	Limit         int
	Offset        int
}

// Store is the full persistence surface for the server. The sqlite package
// provides the only implementation; it is expressed as an interface so
// services can be tested against an in-memory or fake backend.
type Store interface {
	Close() error

	// Users.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	CountUsers(ctx context.Context) (int, error)

	// Roles & permissions.
	CreateRole(ctx context.Context, r *domain.Role) error
	GetRole(ctx context.Context, id string) (*domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	ListPermissions(ctx context.Context) ([]*domain.Permission, error)
	GetPermissionByName(ctx context.Context, name string) (*domain.Permission, error)
	SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	RolePermissionNames(ctx context.Context, roleID string) ([]string, error)
	AssignUserRole(ctx context.Context, userID, roleID string) error
	UserRoleIDs(ctx context.Context, userID string) ([]string, error)
	EffectivePermissions(ctx context.Context, userID string) ([]string, error)

	// Invitations.
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitationByTokenHash(ctx context.Context, hash string) (*domain.Invitation, error)
	ListInvitations(ctx context.Context) ([]*domain.Invitation, error)
	ConsumeInvitation(ctx context.Context, id, userID string) error
	RevokeInvitation(ctx context.Context, id string) error

	// Auth settings.
	GetAuthSettings(ctx context.Context) (*domain.AuthSettings, error)
	SetAuthFlow(ctx context.Context, flow domain.AuthFlow) error

	// Authors.
	GetOrCreateAuthor(ctx context.Context, name, normalized string) (*domain.Author, error)
	GetAuthor(ctx context.Context, id string) (*domain.Author, error)
	ListAuthors(ctx context.Context) ([]*domain.Author, error)

	// Books.
	CreateBook(ctx context.Context, b *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBookByPath(ctx context.Context, path string) (*domain.Book, error)
	UpdateBook(ctx context.Context, b *domain.Book) error
	ListBooks(ctx context.Context, filter BookFilter) ([]*domain.Book, error)
	ListActiveBookPaths(ctx context.Context) (map[string]string, error) // path -> id
	ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Book, error)
	HardDeleteBook(ctx context.Context, id string) error

	// Tags.
	CreateTag(ctx context.Context, t *domain.Tag) error
	GetTagByName(ctx context.Context, name string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	ListCategories(ctx context.Context) ([]string, error)
	DeleteTag(ctx context.Context, id string) error
	ApplyTag(ctx context.Context, bt *domain.BookTag) error
	RemoveBookTag(ctx context.Context, bookID, tagID string) error
	BookTags(ctx context.Context, bookID string) ([]*domain.Tag, error)
	SetUserTagPreference(ctx context.Context, pref *domain.UserTagPreference) error
	UserTagPreferences(ctx context.Context, userID string) ([]*domain.UserTagPreference, error)

	// Reading progress.
	GetProgress(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error)
	UpsertProgress(ctx context.Context, p *domain.ReadingProgress) error
	RecentProgress(ctx context.Context, userID string, limit int) ([]*domain.ReadingProgress, error)
	CurrentlyReading(ctx context.Context, userID string) ([]*domain.ReadingProgress, error)
	Completed(ctx context.Context, userID string) ([]*domain.ReadingProgress, error)
	ActiveDays(ctx context.Context, userID string) ([]time.Time, error)
	DeleteProgressForBook(ctx context.Context, bookID string) error
}
