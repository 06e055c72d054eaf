// Package index defines the secondary metadata index that backs directory
// ownership, cached attributes and access grants.
//
// The directory marker file remains the source of truth for a directory's
// UUID; every row here is keyed by that UUID and is purged or refreshed when
// the directory is deleted or renamed.
package index

import (
	"context"

	"github.com/marmos91/dittobox/pkg/models"
)

// OwnershipStore manages DirectoryOwnership rows.
type OwnershipStore interface {
	// CreateOwnership records the owner of a directory.
	// Returns ErrDuplicateOwner if the directory already has one.
	CreateOwnership(ctx context.Context, directoryID, userID string) error

	// GetOwnership returns the owner row of a directory.
	// Returns ErrRecordNotFound if absent.
	GetOwnership(ctx context.Context, directoryID string) (*models.DirectoryOwnership, error)

	// ListOwnedDirectories returns the UUIDs of directories owned by userID (exact match).
	ListOwnedDirectories(ctx context.Context, userID string) ([]string, error)

	// SearchOwnerships returns ownership rows whose user contains substring.
	SearchOwnerships(ctx context.Context, substring string) ([]*models.DirectoryOwnership, error)
}

// AttributeStore manages generic DirectoryAttribute rows.
type AttributeStore interface {
	// PutAttribute inserts or updates an attribute. Reports whether the row was created.
	PutAttribute(ctx context.Context, directoryID, key, value string) (bool, error)

	// GetAttribute returns a single attribute.
	// Returns ErrRecordNotFound if absent.
	GetAttribute(ctx context.Context, directoryID, key string) (*models.DirectoryAttribute, error)

	// GetAttributes returns the key attribute for each of the given directories that has one.
	GetAttributes(ctx context.Context, directoryIDs []string, key string) ([]*models.DirectoryAttribute, error)

	// SearchAttributes returns rows for key whose value contains substring.
	SearchAttributes(ctx context.Context, key, substring string) ([]*models.DirectoryAttribute, error)
}

// GrantStore manages AccessGrant rows.
type GrantStore interface {
	// GetGrant returns the grant of userID on a directory, active or revoked.
	// Returns ErrRecordNotFound if none was ever issued.
	GetGrant(ctx context.Context, directoryID, userID string) (*models.AccessGrant, error)

	// ActivateGrant creates the grant or flips a revoked one back to active.
	// Returns ErrGrantAlreadyActive if the grant is already active.
	ActivateGrant(ctx context.Context, directoryID, userID string) error

	// RevokeGrant flips an active grant to revoked, keeping the row.
	// Returns ErrGrantNotActive if there is no active grant.
	RevokeGrant(ctx context.Context, directoryID, userID string) error

	// ListGrantees returns the users holding an active grant on a directory, sorted.
	ListGrantees(ctx context.Context, directoryID string) ([]string, error)

	// ListGrantedDirectories returns the directories userID holds an active grant on.
	ListGrantedDirectories(ctx context.Context, userID string) ([]string, error)
}

// UserStore manages the accounts grants can be issued to.
type UserStore interface {
	// CreateUser stores a new user and returns its ID.
	// Returns ErrDuplicateUser if the identity is taken.
	CreateUser(ctx context.Context, user *models.User) (string, error)

	// GetUser returns a user by identity.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, identity string) (*models.User, error)

	// ListUsers returns all users ordered by identity.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// SetPassword replaces the password hash of a user.
	// Returns ErrUserNotFound if the user doesn't exist.
	SetPassword(ctx context.Context, identity, passwordHash string) error
}

// Store is the complete metadata index.
//
// Thread safety: implementations must be safe for concurrent use.
type Store interface {
	OwnershipStore
	AttributeStore
	GrantStore
	UserStore

	// DeleteDirectory removes ownership, attributes and grants of a directory
	// in a single transaction. Deleting an unknown directory is not an error.
	DeleteDirectory(ctx context.Context, directoryID string) error

	// Healthcheck verifies the backend is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
