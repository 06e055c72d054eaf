// Package models defines the persistent records of the metadata index.
package models

import "strings"

// Attribute keys exposed through MetadataRecord.
const (
	// KeyOwner is served from DirectoryOwnership.
	KeyOwner = "owner"
	// KeyPath caches the directory's root-relative path.
	KeyPath = "path"
)

// AllModels returns all models for auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&DirectoryOwnership{},
		&DirectoryAttribute{},
		&AccessGrant{},
	}
}

// NormalizeIdentity canonicalises an actor identity for storage and comparison.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
