package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for storage spans. Keys use the "fs." prefix except where
// an OpenTelemetry semantic convention already exists.
const (
	AttrOperation = "fs.operation"
	AttrPath      = "fs.path"
	AttrNewPath   = "fs.new_path"
	AttrName      = "fs.name"
	AttrSize      = "fs.size"
	AttrUUID      = "fs.uuid"
	AttrMediaType = "fs.media_type"

	AttrUsername = "user.name"
	AttrGrantee  = "access.grantee"
	AttrRule     = "access.rule"
	AttrAllowed  = "access.allowed"

	// AttrKind is the stable error kind of a failed operation ("OK" on success)
	AttrKind = "error.kind"

	AttrLockMode = "gate.mode"
)

// Span name prefixes.
const (
	SpanStorage = "storage."
	SpanAccess  = "access."
)

func FSOperation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

func FSPath(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

func FSNewPath(p string) attribute.KeyValue {
	return attribute.String(AttrNewPath, p)
}

func FSName(name string) attribute.KeyValue {
	return attribute.String(AttrName, name)
}

func FSSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, size)
}

func FSUUID(id string) attribute.KeyValue {
	return attribute.String(AttrUUID, id)
}

func MediaType(mime string) attribute.KeyValue {
	return attribute.String(AttrMediaType, mime)
}

func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

func Grantee(identity string) attribute.KeyValue {
	return attribute.String(AttrGrantee, identity)
}

// Decision returns the attributes describing an access decision.
func Decision(allowed bool, rule string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(AttrAllowed, allowed),
		attribute.String(AttrRule, rule),
	}
}

func Kind(kind string) attribute.KeyValue {
	return attribute.String(AttrKind, kind)
}

func LockMode(mode string) attribute.KeyValue {
	return attribute.String(AttrLockMode, mode)
}

// StartStorageSpan starts a "storage.<operation>" span carrying the actor
// and the target path.
func StartStorageSpan(ctx context.Context, operation, actor, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+3)
	all = append(all, FSOperation(operation), Username(actor), FSPath(path))
	all = append(all, attrs...)
	return StartSpan(ctx, SpanStorage+operation, trace.WithAttributes(all...))
}

// StartAccessSpan starts an "access.<operation>" span.
func StartAccessSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanAccess+operation, trace.WithAttributes(attrs...))
}
