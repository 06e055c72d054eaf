package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Request
	// ========================================================================
	KeyOperation = "operation" // Storage operation: list, mkdir, upload, rename, delete, ...
	KeyActor     = "actor"     // Identity of the acting user
	KeyGrantee   = "grantee"   // Identity receiving or losing a grant
	KeyRole      = "role"      // user role: user / admin
	KeyOwnerOnly = "owner_only"
	KeyDecision  = "decision" // allow / deny

	// ========================================================================
	// File System
	// ========================================================================
	KeyPath       = "path"        // Root-relative file/directory path
	KeyFilename   = "filename"    // File or directory name (basename)
	KeyParentPath = "parent_path" // Parent directory path
	KeyOldPath    = "old_path"    // Source path for rename operations
	KeyNewPath    = "new_path"    // Destination path for rename operations
	KeySize       = "size"        // File size in bytes
	KeyEntries    = "entries"     // Number of directory entries
	KeyRoot       = "root"        // Storage root

	// ========================================================================
	// Metadata
	// ========================================================================
	KeyUUID       = "uuid"  // Directory UUID
	KeyKey        = "key"   // Metadata attribute key
	KeyIndexType  = "index" // Metadata index backend: sqlite, postgres, badger
	KeyDepth      = "depth" // Path refresh cascade depth
	KeyCacheHit   = "cache_hit"
	KeyCacheSize  = "cache_size"
	KeyRefreshed  = "refreshed" // Number of child paths refreshed
	KeyLockMode   = "lock_mode" // shared / exclusive
	KeyLockWaitMs = "lock_wait_ms"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyKind       = "kind"        // Stable error kind tag
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Operation returns a slog.Attr for the storage operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Actor returns a slog.Attr for the acting identity
func Actor(identity string) slog.Attr {
	return slog.String(KeyActor, identity)
}

// Grantee returns a slog.Attr for a grant target identity
func Grantee(identity string) slog.Attr {
	return slog.String(KeyGrantee, identity)
}

// Path returns a slog.Attr for file/directory path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for filename (basename)
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// ParentPath returns a slog.Attr for parent directory path
func ParentPath(p string) slog.Attr {
	return slog.String(KeyParentPath, p)
}

// OldPath returns a slog.Attr for source path in rename operations
func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

// NewPath returns a slog.Attr for destination path in rename operations
func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// Size returns a slog.Attr for file size
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// Entries returns a slog.Attr for number of directory entries
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// UUID returns a slog.Attr for a directory UUID
func UUID(id string) slog.Attr {
	return slog.String(KeyUUID, id)
}

// Key returns a slog.Attr for a metadata attribute key
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// LockMode returns a slog.Attr for gate acquisition mode
func LockMode(mode string) slog.Attr {
	return slog.String(KeyLockMode, mode)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Kind returns a slog.Attr for a stable error kind tag
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}
