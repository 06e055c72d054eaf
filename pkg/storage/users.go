package storage

import (
	"context"
	"errors"
	"slices"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/access"
	"github.com/marmos91/dittobox/pkg/filestore"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	"github.com/marmos91/dittobox/pkg/models"
)

// system is the actor recorded for user management run by the operator.
var system = access.NewActor("system", models.RoleAdmin)

// AddUser registers identity so it can act and receive grants. Identities
// listed in the configured admins get the admin role.
func (s *Service) AddUser(ctx context.Context, identity, displayName string) (*models.User, error) {
	identity = models.NormalizeIdentity(identity)

	return observe(ctx, s, OpAddUser, system, "", func(ctx context.Context) (*models.User, error) {
		if identity == "" {
			return nil, storeerrors.NewValidationError(identity, "identity is required")
		}
		if _, err := homeName(access.NewActor(identity)); err != nil {
			return nil, err
		}

		role := models.RoleUser
		if slices.Contains(s.admins, identity) {
			role = models.RoleAdmin
		}

		u := &models.User{
			Identity:    identity,
			Role:        role,
			DisplayName: displayName,
		}
		if _, err := s.index.CreateUser(ctx, u); err != nil {
			if errors.Is(err, models.ErrDuplicateUser) {
				return nil, storeerrors.NewAlreadyExistsError(identity)
			}
			return nil, storeerrors.NewIOError(identity, "create user", err)
		}

		logger.InfoCtx(ctx, "user created", logger.KeyGrantee, identity, logger.KeyRole, string(role))
		return u, nil
	})
}

// ListUsers returns every registered user ordered by identity.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	return observe(ctx, s, OpUsers, system, "", func(ctx context.Context) ([]*models.User, error) {
		users, err := s.index.ListUsers(ctx)
		if err != nil {
			return nil, storeerrors.NewIOError("", "list users", err)
		}
		return users, nil
	})
}

// GetUser returns the registered user identity.
func (s *Service) GetUser(ctx context.Context, identity string) (*models.User, error) {
	identity = models.NormalizeIdentity(identity)

	return observe(ctx, s, OpUser, system, "", func(ctx context.Context) (*models.User, error) {
		u, err := s.index.GetUser(ctx, identity)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return nil, storeerrors.NewNotFoundError(identity, "user")
			}
			return nil, storeerrors.NewIOError(identity, "lookup user", err)
		}
		return u, nil
	})
}

// SetPassword sets the API login password of the registered user identity.
func (s *Service) SetPassword(ctx context.Context, identity, password string) error {
	identity = models.NormalizeIdentity(identity)

	return run(ctx, s, OpPasswd, system, "", func(ctx context.Context) error {
		hash, err := models.HashPassword(password)
		if err != nil {
			return storeerrors.NewValidationError("", err.Error())
		}
		if err := s.index.SetPassword(ctx, identity, hash); err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return storeerrors.NewNotFoundError(identity, "user")
			}
			return storeerrors.NewIOError(identity, "set password", err)
		}
		logger.InfoCtx(ctx, "password updated", logger.KeyGrantee, identity)
		return nil
	})
}

// Authenticate checks the password of identity and returns its user
// record. Unknown identities and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, identity, password string) (*models.User, error) {
	identity = models.NormalizeIdentity(identity)

	return observe(ctx, s, OpLogin, access.NewActor(identity), "", func(ctx context.Context) (*models.User, error) {
		u, err := s.index.GetUser(ctx, identity)
		if err != nil && !errors.Is(err, models.ErrUserNotFound) {
			return nil, storeerrors.NewIOError(identity, "lookup user", err)
		}
		if u == nil || !models.VerifyPassword(password, u.PasswordHash) {
			return nil, storeerrors.NewAccessDeniedError("", models.ErrInvalidCredentials.Error())
		}
		return u, nil
	})
}

// ResolveActor returns the actor for identity with the roles of its user
// record. Unregistered identities act as regular users.
func (s *Service) ResolveActor(ctx context.Context, identity string) (access.Actor, error) {
	identity = models.NormalizeIdentity(identity)
	if identity == "" {
		return access.Actor{}, storeerrors.NewValidationError(identity, "identity is required")
	}

	u, err := s.index.GetUser(ctx, identity)
	switch {
	case err == nil:
		return access.ActorFromUser(u), nil
	case errors.Is(err, models.ErrUserNotFound):
		return access.NewActor(identity, models.RoleUser), nil
	default:
		return access.Actor{}, storeerrors.NewIOError(identity, "lookup user", err)
	}
}

// homeName returns the top-level directory name of actor's namespace. The
// identity must survive name sanitization unchanged, otherwise the
// namespace could never be matched.
func homeName(actor access.Actor) (string, error) {
	identity := models.NormalizeIdentity(actor.Identity)
	clean, err := filestore.SanitizeName(identity)
	if err != nil {
		return "", err
	}
	if clean != identity {
		return "", storeerrors.NewValidationError(actor.Identity, "identity is not a valid directory name")
	}
	return clean, nil
}
