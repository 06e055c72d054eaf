// Package errors provides the error taxonomy shared by every storage layer.
// This is a leaf package with no internal dependencies so that the gate,
// metadata, filestore and access packages can all import it.
//
// Import graph: errors <- gate <- metadata <- filestore <- access <- storage
package errors

import (
	goerrors "errors"
	"fmt"
)

// ErrorCode represents the kind of error that occurred.
type ErrorCode int

const (
	// ErrNotFound indicates the requested node or record does not exist.
	ErrNotFound ErrorCode = iota + 1

	// ErrNotDirectory indicates the operation requires a directory.
	ErrNotDirectory

	// ErrIsDirectory indicates the operation is not valid on a directory.
	ErrIsDirectory

	// ErrAlreadyExists indicates the target node already exists.
	ErrAlreadyExists

	// ErrAccessDenied indicates the actor may not perform the operation.
	ErrAccessDenied

	// ErrLockTimeout indicates the exclusive gate could not be acquired in time.
	// This is the only retryable kind.
	ErrLockTimeout

	// ErrMetadataCorrupt indicates an unreadable or unparseable directory marker.
	ErrMetadataCorrupt

	// ErrValidation indicates an illegal name or path was supplied.
	ErrValidation

	// ErrService indicates a business rule violation (self grant, duplicate grant, ...).
	ErrService

	// ErrNotEmpty indicates the directory still has children.
	ErrNotEmpty

	// ErrNotWritable indicates the node cannot be modified by this process.
	ErrNotWritable

	// ErrIO indicates an unexpected filesystem or index failure.
	ErrIO
)

// String returns the stable kind tag for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrNotFound:
		return "NotFound"
	case ErrNotDirectory:
		return "NotADirectory"
	case ErrIsDirectory:
		return "IsADirectory"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrAccessDenied:
		return "AccessDenied"
	case ErrLockTimeout:
		return "LockTimeout"
	case ErrMetadataCorrupt:
		return "MetadataCorrupt"
	case ErrValidation:
		return "ValidationError"
	case ErrService:
		return "ServiceError"
	case ErrNotEmpty:
		return "NotEmpty"
	case ErrNotWritable:
		return "NotWritable"
	case ErrIO:
		return "IOError"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// Retryable reports whether callers may safely retry an operation that failed
// with this code.
func (e ErrorCode) Retryable() bool {
	return e == ErrLockTimeout
}

// StoreError is a storage error carrying a stable code.
type StoreError struct {
	Code    ErrorCode
	Message string
	Path    string
	Err     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Code, msg, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(path, resourceType string) *StoreError {
	return &StoreError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resourceType),
		Path:    path,
	}
}

// NewNotDirectoryError creates a NotADirectory error.
func NewNotDirectoryError(path string) *StoreError {
	return &StoreError{
		Code:    ErrNotDirectory,
		Message: "not a directory",
		Path:    path,
	}
}

// NewIsDirectoryError creates an IsADirectory error.
func NewIsDirectoryError(path string) *StoreError {
	return &StoreError{
		Code:    ErrIsDirectory,
		Message: "is a directory",
		Path:    path,
	}
}

// NewAlreadyExistsError creates an AlreadyExists error.
func NewAlreadyExistsError(path string) *StoreError {
	return &StoreError{
		Code:    ErrAlreadyExists,
		Message: "already exists",
		Path:    path,
	}
}

// NewAccessDeniedError creates an AccessDenied error.
func NewAccessDeniedError(path, reason string) *StoreError {
	return &StoreError{
		Code:    ErrAccessDenied,
		Message: reason,
		Path:    path,
	}
}

// NewLockTimeoutError creates a retryable LockTimeout error.
func NewLockTimeoutError(mode string) *StoreError {
	return &StoreError{
		Code:    ErrLockTimeout,
		Message: fmt.Sprintf("timed out acquiring %s lock", mode),
	}
}

// NewMetadataCorruptError creates a MetadataCorrupt error wrapping the cause.
func NewMetadataCorruptError(path string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrMetadataCorrupt,
		Message: "directory marker unreadable",
		Path:    path,
		Err:     cause,
	}
}

// NewValidationError creates a ValidationError.
func NewValidationError(value, reason string) *StoreError {
	return &StoreError{
		Code:    ErrValidation,
		Message: reason,
		Path:    value,
	}
}

// NewServiceError creates a ServiceError for a business rule violation.
func NewServiceError(path, reason string) *StoreError {
	return &StoreError{
		Code:    ErrService,
		Message: reason,
		Path:    path,
	}
}

// NewNotEmptyError creates a NotEmpty error.
func NewNotEmptyError(path string) *StoreError {
	return &StoreError{
		Code:    ErrNotEmpty,
		Message: "directory not empty",
		Path:    path,
	}
}

// NewNotWritableError creates a NotWritable error.
func NewNotWritableError(path string) *StoreError {
	return &StoreError{
		Code:    ErrNotWritable,
		Message: "not writable",
		Path:    path,
	}
}

// NewIOError creates an IOError wrapping the cause.
func NewIOError(path, op string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrIO,
		Message: op,
		Path:    path,
		Err:     cause,
	}
}

// ============================================================================
// Inspection Helpers
// ============================================================================

// Code returns the code of the first StoreError in err's chain, or 0.
func Code(err error) ErrorCode {
	var se *StoreError
	if goerrors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && Code(err) == code
}

// Kind returns the stable kind tag for err. Errors outside the taxonomy
// are reported as "Internal".
func Kind(err error) string {
	if err == nil {
		return "OK"
	}
	if code := Code(err); code != 0 {
		return code.String()
	}
	return "Internal"
}

// IsRetryable reports whether err may be retried by the caller.
func IsRetryable(err error) bool {
	return Code(err).Retryable()
}

// IsNotFoundError checks if err is a NotFound error.
func IsNotFoundError(err error) bool {
	return Is(err, ErrNotFound)
}

// IsAccessDeniedError checks if err is an AccessDenied error.
func IsAccessDeniedError(err error) bool {
	return Is(err, ErrAccessDenied)
}

// IsLockTimeoutError checks if err is a LockTimeout error.
func IsLockTimeoutError(err error) bool {
	return Is(err, ErrLockTimeout)
}
