package storage

import (
	"context"

	"github.com/marmos91/dittobox/internal/telemetry"
	"github.com/marmos91/dittobox/pkg/access"
)

// GrantAccess gives grantee access to the managed directory at p. Only the
// owner may grant.
func (s *Service) GrantAccess(ctx context.Context, actor access.Actor, p, grantee string) error {
	return run(ctx, s, OpGrant, actor, p, func(ctx context.Context) error {
		return s.access.GrantAccess(ctx, actor, p, grantee)
	}, telemetry.Grantee(grantee))
}

// RevokeAccess withdraws grantee's access to the managed directory at p.
// Only the owner may revoke.
func (s *Service) RevokeAccess(ctx context.Context, actor access.Actor, p, grantee string) error {
	return run(ctx, s, OpRevoke, actor, p, func(ctx context.Context) error {
		return s.access.RevokeAccess(ctx, actor, p, grantee)
	}, telemetry.Grantee(grantee))
}

// ListGrantees returns the identities holding an active grant on the
// managed directory at p.
func (s *Service) ListGrantees(ctx context.Context, actor access.Actor, p string) ([]string, error) {
	return observe(ctx, s, OpGrantees, actor, p, func(ctx context.Context) ([]string, error) {
		if err := s.access.Authorize(ctx, actor, p, readClass); err != nil {
			return nil, err
		}
		return s.access.ListGrantees(ctx, p)
	})
}

// Decide evaluates whether actor may operate on p without failing on a
// denial. ownerOnly selects the owner-only operation class.
func (s *Service) Decide(ctx context.Context, actor access.Actor, p string, ownerOnly bool) (*access.Decision, error) {
	return observe(ctx, s, OpDecide, actor, p, func(ctx context.Context) (*access.Decision, error) {
		d, err := s.access.Evaluate(ctx, actor, p, ownerOnly)
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.Decision(d.Allowed, string(d.Rule))...)
		return d, nil
	})
}

// SharedWith lists the directories outside actor's namespace that actor
// owns or was granted.
func (s *Service) SharedWith(ctx context.Context, actor access.Actor) ([]access.Entry, error) {
	return observe(ctx, s, OpShared, actor, "", func(ctx context.Context) ([]access.Entry, error) {
		return s.access.ListAccessible(ctx, actor)
	})
}
