// Package access implements the tag & permission engine: the composition
// of role-derived permissions and tag-based visibility that gates which
// books a user may see. Domain services never query books directly for
// user-visible lists — they go through VisibleBooks.
package access

import (
	"context"
	"fmt"

	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/store"
)

// EffectivePermissions returns the union of permission names across every
// role the user holds.
func EffectivePermissions(ctx context.Context, st store.Store, userID string) (map[string]bool, error) {
	names, err := st.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("effective permissions: %w", err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// HasPermission reports whether the user holds the named permission.
func HasPermission(ctx context.Context, st store.Store, userID, permission string) (bool, error) {
	perms, err := EffectivePermissions(ctx, st, userID)
	if err != nil {
		return false, err
	}
	return perms[permission], nil
}

// VisibleBooks applies the full tag-permission visibility predicate on top
// of a store listing: (a) status = active, already enforced by filter,
// (b) every requires_permission tag on the book is held by the user, (c) no
// UserTagPreference(deny) exists for any tag on the book, (d) include/
// exclude tag-name filters (already pushed into the store query).
func VisibleBooks(ctx context.Context, st store.Store, userID string, filter store.BookFilter) ([]*domain.Book, error) {
	filter.Status = domain.BookStatusActive

	candidates, err := st.ListBooks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	perms, err := EffectivePermissions(ctx, st, userID)
	if err != nil {
		return nil, err
	}

	prefs, err := st.UserTagPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user tag preferences: %w", err)
	}
	denied := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		if p.State == domain.TagPreferenceDeny {
			denied[p.TagID] = true
		}
	}

	visible := make([]*domain.Book, 0, len(candidates))
	for _, b := range candidates {
		ok, err := bookVisible(ctx, st, b, perms, denied)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, b)
		}
	}
	return visible, nil
}

// BookVisible reports whether a single book (already known to the caller)
// is visible to the user, applying the same predicate as VisibleBooks.
// Useful for single-book reads (get, stream) where the caller already has
// the book row and only needs the gating decision.
func BookVisible(ctx context.Context, st store.Store, userID string, book *domain.Book) (bool, error) {
	if !book.IsActive() {
		return false, nil
	}
	perms, err := EffectivePermissions(ctx, st, userID)
	if err != nil {
		return false, err
	}
	prefs, err := st.UserTagPreferences(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("user tag preferences: %w", err)
	}
	denied := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		if p.State == domain.TagPreferenceDeny {
			denied[p.TagID] = true
		}
	}
	return bookVisible(ctx, st, book, perms, denied)
}

func bookVisible(ctx context.Context, st store.Store, b *domain.Book, perms, denied map[string]bool) (bool, error) {
	tags, err := st.BookTags(ctx, b.ID)
	if err != nil {
		return false, fmt.Errorf("book tags: %w", err)
	}
	for _, t := range tags {
		if denied[t.ID] {
			return false, nil
		}
		if t.RequiresPermission != "" && !perms[t.RequiresPermission] {
			return false, nil
		}
	}
	return true, nil
}
