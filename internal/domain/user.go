package domain

import "time"

// User is an authenticated account. A user owns zero or more Role
// assignments (see UserRole); effective permissions are the union over
// those roles, computed by the access package.
type User struct {
	Syncable
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string     `json:"-"` // never serialized
	DisplayName  string     `json:"display_name"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Deactivate marks the account inactive without deleting it. Deactivation
// is the only removal path for the primary registration flow; reactivation
// is always possible by flipping IsActive back on.
func (u *User) Deactivate() {
	u.IsActive = false
	u.Touch()
}

// Reactivate restores a deactivated account.
func (u *User) Reactivate() {
	u.IsActive = true
	u.Touch()
}

// TagPreferenceMode is a user's explicit override of a tag's default
// visibility.
type TagPreferenceMode string

const (
	TagPreferenceAllow TagPreferenceMode = "allow"
	TagPreferenceDeny  TagPreferenceMode = "deny"
)

// UserTagPreference layers a per-user allow/deny over permission-based tag
// gating (see internal/access). A deny always excludes the book regardless
// of what permissions the user holds.
type UserTagPreference struct {
	UserID    string            `json:"user_id"`
	TagID     string            `json:"tag_id"`
	State     TagPreferenceMode `json:"state"`
	UpdatedAt time.Time         `json:"updated_at"`
}
