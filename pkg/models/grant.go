package models

import (
	"fmt"
	"time"
)

// GrantState is the state of an access grant.
type GrantState string

const (
	// GrantActive allows the grantee to read the directory.
	GrantActive GrantState = "active"
	// GrantRevoked is a tombstone left behind by a revoke.
	GrantRevoked GrantState = "revoked"
)

// IsValid checks if the state is a known GrantState.
func (s GrantState) IsValid() bool {
	return s == GrantActive || s == GrantRevoked
}

// IsActive reports whether the grant currently allows access.
func (s GrantState) IsActive() bool {
	return s == GrantActive
}

// ParseGrantState parses a grant state, accepting the legacy "true"/"false" values.
func ParseGrantState(s string) (GrantState, error) {
	switch s {
	case string(GrantActive), "true":
		return GrantActive, nil
	case string(GrantRevoked), "false":
		return GrantRevoked, nil
	default:
		return "", fmt.Errorf("invalid grant state %q", s)
	}
}

// AccessGrant gives a user read access to a directory.
// Revoked grants are kept as tombstones.
type AccessGrant struct {
	DirectoryID string     `gorm:"primaryKey;size:36" json:"directory_id"`
	UserID      string     `gorm:"primaryKey;size:255;index" json:"user_id"`
	State       GrantState `gorm:"not null;size:16" json:"state"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for AccessGrant.
func (AccessGrant) TableName() string {
	return "access_grants"
}

// Key renders the grant in the ACCESS_TO_<uuid> form used in logs and listings.
func (g *AccessGrant) Key() string {
	return GrantKey(g.DirectoryID)
}

// GrantKey returns the ACCESS_TO_<uuid> key for a directory.
func GrantKey(directoryID string) string {
	return "ACCESS_TO_" + directoryID
}
