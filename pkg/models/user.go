package models

import "time"

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleUser is a regular user confined to owned and granted directories.
	RoleUser UserRole = "user"
	// RoleAdmin bypasses every access check.
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is a valid UserRole.
func (r UserRole) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account known to the engine. Identities are normalized
// with NormalizeIdentity before they are stored.
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Identity    string    `gorm:"uniqueIndex;not null;size:255" json:"identity"`
	Role        UserRole  `gorm:"default:user;size:50" json:"role"`
	DisplayName string    `gorm:"size:255" json:"display_name,omitempty"`

	// PasswordHash is the bcrypt hash used for API login. Empty means the
	// user can only act through the embedding process.
	PasswordHash string `gorm:"size:255" json:"-" yaml:"-"`

	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPassword reports whether the user can log in over the API.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// GetDisplayName returns the display name, or the identity if display name is not set.
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Identity
}
