package storage

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/access"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	"github.com/marmos91/dittobox/pkg/metrics"
)

// Operation names, used for span names, log fields and metric labels.
const (
	OpList     = "list"
	OpStat     = "stat"
	OpRead     = "read"
	OpMkdir    = "mkdir"
	OpUpload   = "upload"
	OpRename   = "rename"
	OpDelete   = "delete"
	OpGrant    = "grant"
	OpRevoke   = "revoke"
	OpGrantees = "grantees"
	OpDecide   = "decide"
	OpHome     = "home"
	OpShared   = "shared"
	OpAddUser  = "user_add"
	OpUsers    = "user_list"
	OpUser     = "user_get"
	OpPasswd   = "user_passwd"
	OpLogin    = "login"
)

// observe runs fn as operation op of actor on p: inside a span, with a
// LogContext, counted in the metrics and logged on completion.
func observe[T any](ctx context.Context, s *Service, op string, actor access.Actor, p string, fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, op, actor.Identity, p, attrs...)
	defer span.End()

	lc := logger.NewLogContext(actor.Identity).
		WithOperation(op, p).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	metrics.RecordOperationStart(s.metrics, op)
	start := time.Now()

	result, err := fn(ctx)

	kind := storeerrors.Kind(err)
	metrics.RecordOperation(s.metrics, op, kind, time.Since(start))
	telemetry.SetAttributes(ctx, telemetry.Kind(kind))

	switch {
	case err == nil:
		logger.DebugCtx(ctx, "operation completed", logger.KeyDurationMs, lc.DurationMs())
	case storeerrors.IsLockTimeoutError(err):
		logger.WarnCtx(ctx, "operation timed out waiting for the gate", logger.Err(err))
		telemetry.RecordError(ctx, err)
	case clientError(err):
		logger.InfoCtx(ctx, "operation rejected", logger.KeyKind, kind, logger.Err(err))
		telemetry.RecordError(ctx, err)
	default:
		logger.ErrorCtx(ctx, "operation failed", logger.KeyKind, kind, logger.Err(err))
		telemetry.RecordError(ctx, err)
	}
	return result, err
}

// run is observe for operations without a result.
func run(ctx context.Context, s *Service, op string, actor access.Actor, p string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	_, err := observe(ctx, s, op, actor, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, attrs...)
	return err
}

// clientError reports whether err was caused by the request rather than by
// the engine. Those are logged at INFO.
func clientError(err error) bool {
	switch storeerrors.Code(err) {
	case storeerrors.ErrNotFound,
		storeerrors.ErrNotDirectory,
		storeerrors.ErrIsDirectory,
		storeerrors.ErrAlreadyExists,
		storeerrors.ErrAccessDenied,
		storeerrors.ErrValidation,
		storeerrors.ErrService,
		storeerrors.ErrNotEmpty,
		storeerrors.ErrNotWritable:
		return true
	}
	return false
}
