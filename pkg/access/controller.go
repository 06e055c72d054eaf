// Package access decides whether an actor may operate on a path, based on
// the global admin role, personal namespaces, directory ownership and
// access grants, and manages those grants.
package access

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/filestore"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/index"
	"github.com/marmos91/dittobox/pkg/metadata"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	"github.com/marmos91/dittobox/pkg/models"
)

// Rule names the step of the decision procedure that settled a Decision.
type Rule string

const (
	RuleAdmin     Rule = "admin"
	RuleNamespace Rule = "namespace"
	RuleOwner     Rule = "owner"
	RuleNoOwner   Rule = "no_owner"
	RuleNotOwner  Rule = "not_owner"
	RuleGrant     Rule = "grant"
	RuleNoGrant   Rule = "no_grant"
	RuleError     Rule = "error"
)

// Decision is the outcome of an access check.
type Decision struct {
	// Allowed indicates whether the operation may proceed.
	Allowed bool

	// Rule is the step that produced the outcome.
	Rule Rule

	// Reason is a human-readable explanation, empty when allowed.
	Reason string

	// DirectoryID is the UUID of the directory the check was evaluated
	// against, when one was resolved.
	DirectoryID string
}

// Controller evaluates access decisions and manages grants.
type Controller struct {
	files  *filestore.Store
	meta   *metadata.Store
	gate   gate.Gate
	grants index.GrantStore
	users  index.UserStore
}

// New creates a Controller over the file store's root, metadata and gate.
func New(files *filestore.Store, grants index.GrantStore, users index.UserStore) (*Controller, error) {
	if files == nil {
		return nil, fmt.Errorf("file store is required")
	}
	if grants == nil || users == nil {
		return nil, fmt.Errorf("grant and user stores are required")
	}
	return &Controller{
		files:  files,
		meta:   files.Metadata(),
		gate:   files.Gate(),
		grants: grants,
		users:  users,
	}, nil
}

// ============================================================================
// Decision procedure
// ============================================================================

// Decide reports whether actor may operate on p. ownerOnly marks mutating
// operations (rename, delete, grant management) that only the owner may
// perform. Failures during evaluation resolve to deny.
func (c *Controller) Decide(ctx context.Context, actor Actor, p string, ownerOnly bool) bool {
	d, err := c.Evaluate(ctx, actor, p, ownerOnly)
	if err != nil {
		logger.DebugCtx(ctx, "access evaluation failed, denying",
			logger.KeyActor, actor.Identity, logger.KeyPath, p, logger.Err(err))
		return false
	}
	return d.Allowed
}

// Authorize is Decide returning an AccessDenied error on deny.
func (c *Controller) Authorize(ctx context.Context, actor Actor, p string, ownerOnly bool) error {
	d, err := c.Evaluate(ctx, actor, p, ownerOnly)
	return verdict(ctx, actor, p, d, err)
}

// Check is Authorize without acquiring the gate. Callers either already
// hold it, as Guard does, or accept a decision that may be stale by the
// time they act on it.
func (c *Controller) Check(ctx context.Context, actor Actor, p string, ownerOnly bool) error {
	return verdict(ctx, actor, p, c.decide(ctx, actor, p, ownerOnly), nil)
}

// Guard returns a filestore.Guard that runs Check inside the exclusive
// section of a mutation, so the decision and the change see the same tree.
func (c *Controller) Guard(ctx context.Context, actor Actor, p string, ownerOnly bool) filestore.Guard {
	return func() error {
		return c.Check(ctx, actor, p, ownerOnly)
	}
}

func verdict(ctx context.Context, actor Actor, p string, d *Decision, err error) error {
	if err != nil {
		if storeerrors.IsLockTimeoutError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logger.DebugCtx(ctx, "access evaluation failed, denying",
			logger.KeyActor, actor.Identity, logger.KeyPath, p, logger.Err(err))
		return storeerrors.NewAccessDeniedError(filestore.CleanRel(p), "access could not be verified")
	}
	if !d.Allowed {
		return storeerrors.NewAccessDeniedError(filestore.CleanRel(p), d.Reason)
	}
	return nil
}

// Evaluate runs the decision procedure under the shared gate:
//
//  1. admins are always allowed
//  2. paths inside the actor's personal namespace are allowed
//  3. the owner of the nearest directory is allowed
//  4. without an owner record, owner-only operations are denied
//  5. owner-only operations by anyone else are denied
//  6. otherwise the actor needs an active grant on the directory
//
// A non-nil error is returned only when the gate could not be acquired.
func (c *Controller) Evaluate(ctx context.Context, actor Actor, p string, ownerOnly bool) (*Decision, error) {
	return gate.SharedValue(ctx, c.gate, func() (*Decision, error) {
		return c.decide(ctx, actor, p, ownerOnly), nil
	})
}

func (c *Controller) decide(ctx context.Context, actor Actor, p string, ownerOnly bool) *Decision {
	d := c.evaluate(ctx, actor, p, ownerOnly)
	logger.DebugCtx(ctx, "access decision",
		logger.KeyActor, actor.Identity,
		logger.KeyPath, p,
		logger.KeyOwnerOnly, ownerOnly,
		logger.KeyDecision, d.Rule)
	return d
}

func (c *Controller) evaluate(ctx context.Context, actor Actor, p string, ownerOnly bool) *Decision {
	if actor.IsAdmin() {
		return allow(RuleAdmin, "")
	}

	identity := models.NormalizeIdentity(actor.Identity)
	if identity == "" {
		return deny(RuleError, "anonymous actor", "")
	}

	if InNamespace(identity, p) {
		return allow(RuleNamespace, "")
	}

	dirID, err := c.directoryID(p)
	if err != nil {
		logger.DebugCtx(ctx, "no directory identity", logger.KeyPath, p, logger.Err(err))
		if ownerOnly {
			return deny(RuleNoOwner, "directory has no owner", "")
		}
		return deny(RuleNoGrant, "no access grant", "")
	}

	owner, err := c.meta.FindMetadataFromKey(ctx, dirID, models.KeyOwner)
	if err == nil && models.NormalizeIdentity(owner.Value) == identity {
		return allow(RuleOwner, dirID)
	}
	if err != nil {
		logger.DebugCtx(ctx, "owner lookup failed", logger.KeyUUID, dirID, logger.Err(err))
		if ownerOnly {
			return deny(RuleNoOwner, "directory has no owner", dirID)
		}
	} else if ownerOnly {
		return deny(RuleNotOwner, "only the owner may modify this directory", dirID)
	}

	grant, err := c.grants.GetGrant(ctx, dirID, identity)
	if err != nil {
		if !errors.Is(err, models.ErrRecordNotFound) {
			logger.DebugCtx(ctx, "grant lookup failed", logger.KeyUUID, dirID, logger.Err(err))
		}
		return deny(RuleNoGrant, "no access grant", dirID)
	}
	if !grant.State.IsActive() {
		return deny(RuleNoGrant, "access grant revoked", dirID)
	}
	return allow(RuleGrant, dirID)
}

func allow(rule Rule, dirID string) *Decision {
	return &Decision{Allowed: true, Rule: rule, DirectoryID: dirID}
}

func deny(rule Rule, reason, dirID string) *Decision {
	return &Decision{Rule: rule, Reason: reason, DirectoryID: dirID}
}

// InNamespace reports whether p lies inside the personal namespace of
// identity, i.e. its first segment equals identity case-insensitively.
func InNamespace(identity, p string) bool {
	top := filestore.TopLevel(p)
	return identity != "" && top != "" && strings.EqualFold(top, identity)
}

// ============================================================================
// Directory resolution
// ============================================================================

// nearestDirectory returns the directory a check on p is evaluated
// against: p itself when it is a directory, its parent otherwise.
func (c *Controller) nearestDirectory(p string) (string, error) {
	abs, err := c.files.Resolver().Resolve(p)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err == nil && info.IsDir() {
		return abs, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", storeerrors.NewIOError(p, "stat", err)
	}
	if c.files.Resolver().IsRoot(abs) {
		return abs, nil
	}
	return filepath.Dir(abs), nil
}

// directoryID returns the UUID of the nearest directory of p.
func (c *Controller) directoryID(p string) (string, error) {
	dir, err := c.nearestDirectory(p)
	if err != nil {
		return "", err
	}
	return c.meta.UUIDFromDir(dir)
}
