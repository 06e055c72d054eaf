package access

import (
	"context"
	"errors"
	"path"
	"sort"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/filestore"
	"github.com/marmos91/dittobox/pkg/gate"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	"github.com/marmos91/dittobox/pkg/models"
)

// ============================================================================
// Grant management
// ============================================================================

// GrantAccess gives grantee read access to the directory at p. Only the
// owner (or an admin) may grant. It fails when grantee is the acting user,
// does not exist, or already holds an active grant. A revoked grant is
// flipped back to active.
//
// The ownership check and the grant change share one exclusive section,
// so neither a rename nor a delete can slip in between them.
func (c *Controller) GrantAccess(ctx context.Context, actor Actor, p, grantee string) error {
	grantee = models.NormalizeIdentity(grantee)
	rel := filestore.CleanRel(p)

	return gate.Exclusive(ctx, c.gate, func() error {
		if err := c.Check(ctx, actor, rel, true); err != nil {
			return err
		}
		if grantee == "" {
			return storeerrors.NewValidationError(grantee, "grantee identity is required")
		}
		if grantee == models.NormalizeIdentity(actor.Identity) {
			return storeerrors.NewServiceError(rel, "cannot grant access to yourself")
		}

		if _, err := c.users.GetUser(ctx, grantee); err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return storeerrors.NewNotFoundError(grantee, "user")
			}
			return storeerrors.NewIOError(grantee, "lookup user", err)
		}

		dirID, err := c.managedDirectoryID(rel)
		if err != nil {
			return err
		}

		if err := c.grants.ActivateGrant(ctx, dirID, grantee); err != nil {
			if errors.Is(err, models.ErrGrantAlreadyActive) {
				return storeerrors.NewServiceError(rel, grantee+" already has access")
			}
			return storeerrors.NewIOError(rel, "activate grant", err)
		}

		logger.InfoCtx(ctx, "access granted",
			logger.KeyPath, rel, logger.KeyUUID, dirID, logger.KeyGrantee, grantee)
		return nil
	})
}

// RevokeAccess flips grantee's active grant on the directory at p to
// revoked. Only the owner (or an admin) may revoke. It fails when grantee
// is the acting user or holds no active grant.
func (c *Controller) RevokeAccess(ctx context.Context, actor Actor, p, grantee string) error {
	grantee = models.NormalizeIdentity(grantee)
	rel := filestore.CleanRel(p)

	return gate.Exclusive(ctx, c.gate, func() error {
		if err := c.Check(ctx, actor, rel, true); err != nil {
			return err
		}
		if grantee == models.NormalizeIdentity(actor.Identity) {
			return storeerrors.NewServiceError(rel, "cannot revoke your own access")
		}

		dirID, err := c.managedDirectoryID(rel)
		if err != nil {
			return err
		}

		if err := c.grants.RevokeGrant(ctx, dirID, grantee); err != nil {
			if errors.Is(err, models.ErrGrantNotActive) {
				return storeerrors.NewServiceError(rel, grantee+" has no access to revoke")
			}
			return storeerrors.NewIOError(rel, "revoke grant", err)
		}

		logger.InfoCtx(ctx, "access revoked",
			logger.KeyPath, rel, logger.KeyUUID, dirID, logger.KeyGrantee, grantee)
		return nil
	})
}

// ListGrantees returns the identities holding an active grant on the
// directory at p, sorted.
func (c *Controller) ListGrantees(ctx context.Context, p string) ([]string, error) {
	rel := filestore.CleanRel(p)
	return gate.SharedValue(ctx, c.gate, func() ([]string, error) {
		dirID, err := c.managedDirectoryID(rel)
		if err != nil {
			return nil, err
		}
		grantees, err := c.grants.ListGrantees(ctx, dirID)
		if err != nil {
			return nil, storeerrors.NewIOError(rel, "list grantees", err)
		}
		return grantees, nil
	})
}

// managedDirectoryID returns the UUID of the directory at rel, which must
// be a managed directory.
func (c *Controller) managedDirectoryID(rel string) (string, error) {
	abs, err := c.files.Resolver().Resolve(rel)
	if err != nil {
		return "", err
	}
	id, err := c.meta.UUIDFromDir(abs)
	if storeerrors.IsNotFoundError(err) {
		return "", storeerrors.NewNotFoundError(rel, "managed directory")
	}
	return id, err
}

// ============================================================================
// Accessible directories
// ============================================================================

// Entry is a directory the actor can reach outside their own namespace.
type Entry struct {
	UUID string `json:"uuid" yaml:"uuid"`
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`

	// Owned is true for directories the actor owns, false for granted ones.
	Owned bool `json:"owned" yaml:"owned"`
}

// ListAccessible returns the directories actor owns or holds an active
// grant on, excluding those inside the actor's personal namespace, sorted
// by path. Paths come from the cached path records.
func (c *Controller) ListAccessible(ctx context.Context, actor Actor) ([]Entry, error) {
	identity := models.NormalizeIdentity(actor.Identity)

	return gate.SharedValue(ctx, c.gate, func() ([]Entry, error) {
		owned, err := c.meta.FindOwnedDirectories(ctx, identity)
		if err != nil {
			return nil, err
		}
		granted, err := c.grants.ListGrantedDirectories(ctx, identity)
		if err != nil {
			return nil, storeerrors.NewIOError(identity, "list granted directories", err)
		}

		ownedSet := make(map[string]bool, len(owned))
		ids := make([]string, 0, len(owned)+len(granted))
		for _, id := range owned {
			ownedSet[id] = true
			ids = append(ids, id)
		}
		for _, id := range granted {
			if !ownedSet[id] {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return []Entry{}, nil
		}

		records, err := c.meta.FindMetadataFromKeyBatch(ctx, ids, models.KeyPath)
		if err != nil {
			return nil, err
		}

		entries := make([]Entry, 0, len(records))
		for _, r := range records {
			if InNamespace(identity, r.Value) {
				continue
			}
			entries = append(entries, Entry{
				UUID:  r.UUID,
				Name:  path.Base(r.Value),
				Path:  r.Value,
				Owned: ownedSet[r.UUID],
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

		logger.DebugCtx(ctx, "accessible directories listed",
			logger.KeyActor, identity, logger.KeyEntries, len(entries))
		return entries, nil
	})
}
