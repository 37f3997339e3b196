package service

import (
	"context"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/store"
)

// AdminService exposes user, role, and invitation management to callers
// already holding the relevant permission; permission checks themselves
// live at the HTTP layer, not here.
type AdminService struct {
	store store.Store
	log   *logger.Logger
}

// NewAdminService builds an AdminService.
func NewAdminService(st store.Store, log *logger.Logger) *AdminService {
	return &AdminService{store: st, log: log.Named("admin_service")}
}

// ListUsers returns every account, active and deactivated alike.
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.store.ListUsers(ctx)
}

// GetUser returns a single account by id.
func (s *AdminService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

// Deactivate disables an account without deleting it; existing session
// tokens remain cryptographically valid until expiry but Login and
// permission checks must reject inactive accounts.
func (s *AdminService) Deactivate(ctx context.Context, userID string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return apperr.NotFound("user not found")
	}
	u.Deactivate()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Reactivate re-enables a previously deactivated account.
func (s *AdminService) Reactivate(ctx context.Context, userID string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return apperr.NotFound("user not found")
	}
	u.Reactivate()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// SetRoles adds each of roleNames to userID's role assignments, resolving
// each to its id. Roles the user already holds are kept, including ones
// not named in roleNames. An unknown role name fails the call; roles named
// before it have already been assigned.
func (s *AdminService) SetRoles(ctx context.Context, userID string, roleNames []string) error {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return apperr.NotFound("user not found")
	}
	for _, name := range roleNames {
		role, err := s.store.GetRoleByName(ctx, name)
		if err != nil {
			return apperr.Validationf("unknown role %q", name)
		}
		if err := s.store.AssignUserRole(ctx, userID, role.ID); err != nil {
			return apperr.Storage(err)
		}
	}
	return nil
}

// Roles returns a user's current role assignments by name.
func (s *AdminService) Roles(ctx context.Context, userID string) ([]*domain.Role, error) {
	ids, err := s.store.UserRoleIDs(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	roles := make([]*domain.Role, 0, len(ids))
	for _, id := range ids {
		r, err := s.store.GetRole(ctx, id)
		if err != nil {
			continue
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// ListRoleCatalog returns every defined role.
func (s *AdminService) ListRoleCatalog(ctx context.Context) ([]*domain.Role, error) {
	return s.store.ListRoles(ctx)
}

// ListPermissionCatalog returns the fixed set of known permissions.
func (s *AdminService) ListPermissionCatalog(ctx context.Context) ([]*domain.Permission, error) {
	return s.store.ListPermissions(ctx)
}

// RolePermissions returns the permission names granted to a role.
func (s *AdminService) RolePermissions(ctx context.Context, roleID string) ([]string, error) {
	return s.store.RolePermissionNames(ctx, roleID)
}

// SetRolePermissions replaces a role's permission grants wholesale,
// resolving each permission name to its id.
func (s *AdminService) SetRolePermissions(ctx context.Context, roleID string, permissionNames []string) error {
	ids := make([]string, 0, len(permissionNames))
	for _, name := range permissionNames {
		p, err := s.store.GetPermissionByName(ctx, name)
		if err != nil {
			return apperr.Validationf("unknown permission %q", name)
		}
		ids = append(ids, p.ID)
	}
	if err := s.store.SetRolePermissions(ctx, roleID, ids); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// ListInvitations returns all outstanding and historical invitations.
func (s *AdminService) ListInvitations(ctx context.Context) ([]*domain.Invitation, error) {
	return s.store.ListInvitations(ctx)
}

// RevokeInvitation soft-deletes an unconsumed invitation, preventing its
// token from being redeemed.
func (s *AdminService) RevokeInvitation(ctx context.Context, invitationID string) error {
	if err := s.store.RevokeInvitation(ctx, invitationID); err != nil {
		return apperr.NotFound("invitation not found")
	}
	return nil
}

// AuthSettings returns the current registration gating mode.
func (s *AdminService) AuthSettings(ctx context.Context) (*domain.AuthSettings, error) {
	settings, err := s.store.GetAuthSettings(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return settings, nil
}
