package access

import (
	"slices"

	"github.com/marmos91/dittobox/pkg/models"
)

// Actor is the resolved identity performing an operation, as supplied by
// the authentication layer.
type Actor struct {
	Identity string
	Roles    []models.UserRole
}

// NewActor returns an Actor with a normalized identity.
func NewActor(identity string, roles ...models.UserRole) Actor {
	return Actor{
		Identity: models.NormalizeIdentity(identity),
		Roles:    roles,
	}
}

// ActorFromUser builds the Actor of a stored user.
func ActorFromUser(u *models.User) Actor {
	role := u.Role
	if role == "" {
		role = models.RoleUser
	}
	return NewActor(u.Identity, role)
}

// IsAdmin reports whether the actor holds the global admin role.
func (a Actor) IsAdmin() bool {
	return slices.Contains(a.Roles, models.RoleAdmin)
}

// String returns the actor identity.
func (a Actor) String() string {
	return a.Identity
}
