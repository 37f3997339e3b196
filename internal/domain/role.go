package domain

// Role is a named bundle of permissions, granted to users via UserRole.
// The permission set itself lives in role_permissions; Role carries only
// identity and description here, the association is resolved by the store.
type Role struct {
	Syncable
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Built-in role names seeded at migration time. Administrator is granted
// every permission in the catalog; Member gets a conservative default set.
const (
	RoleNameAdministrator = "administrator"
	RoleNameMember        = "member"
)

// Permission is a single fixed-catalog capability, dotted by convention
// (e.g. "books.read", "library.manage"). The catalog is seeded at
// migration time and is extensible but not user-editable through the API.
type Permission struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ResourceType string `json:"resource_type"`
	Description  string `json:"description,omitempty"`
}

// Baseline permission names the server itself checks. Deployments may seed
// additional permissions for use as tag gates without any code change.
const (
	PermBooksRead        = "books.read"
	PermBooksManage       = "books.manage"
	PermUsersManage       = "users.manage"
	PermRolesManage       = "roles.manage"
	PermInvitationsManage = "invitations.manage"
	PermTagsManage        = "tags.manage"
	PermLibraryManage     = "library.manage"
	PermMatureRead        = "mature.read"
)

// RolePermission is the role ↔ permission many-to-many join row.
type RolePermission struct {
	RoleID       string `json:"role_id"`
	PermissionID string `json:"permission_id"`
}

// UserRole is the user ↔ role many-to-many join row. A user may hold
// more than one role; effective permissions are the union over all of
// them (see internal/access.EffectivePermissions).
type UserRole struct {
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
}
