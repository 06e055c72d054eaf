package models

import "errors"

// Common errors for metadata index operations.
var (
	// Record errors
	ErrRecordNotFound = errors.New("metadata record not found")
	ErrDuplicateOwner = errors.New("directory already has an owner")

	// Grant errors
	ErrGrantAlreadyActive = errors.New("grant already active")
	ErrGrantNotActive     = errors.New("no active grant")

	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)
