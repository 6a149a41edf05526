// Package auth resolves session tokens to caller identities and
// enforces role and ownership rules before mutating operations run.
package auth

import (
	"context"
	"errors"

	"github.com/fresh-tomatoes/catalog-api/internal/domain"
	"github.com/fresh-tomatoes/catalog-api/internal/repository"
	"github.com/fresh-tomatoes/catalog-api/internal/session"
)

// ErrUnauthenticated indicates the request carried no valid session.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// ErrForbidden indicates a valid session without the required role or
// ownership.
var ErrForbidden = errors.New("auth: forbidden")

// UserLookup is the slice of the user store the guard needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// Guard resolves tokens against the session directory and the user
// store. It is invoked once per mutating request, before any write; it
// either fully authorizes or rejects with no side effects.
type Guard struct {
	sessions session.Directory
	users    UserLookup
}

// NewGuard wires a guard over a session directory and user lookup.
func NewGuard(sessions session.Directory, users UserLookup) *Guard {
	return &Guard{sessions: sessions, users: users}
}

// Resolve maps a session token to the caller's identity. An empty or
// unknown token fails ErrUnauthenticated; so does a token whose bound
// user no longer exists.
func (g *Guard) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrUnauthenticated
	}
	userID, err := g.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrTokenNotFound) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, err
	}
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: user.ID, Username: user.Username, Staff: user.Staff}, nil
}

// ResolveStaff resolves the token and additionally requires the
// elevated role. Authentication failures take priority over the role
// check.
func (g *Guard) ResolveStaff(ctx context.Context, token string) (domain.Identity, error) {
	identity, err := g.Resolve(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	if !identity.Staff {
		return domain.Identity{}, ErrForbidden
	}
	return identity, nil
}

// RequireOwner rejects callers other than the resource owner. Staff do
// not bypass ownership here; operations that allow staff say so
// explicitly via RequireOwnerOrStaff.
func RequireOwner(identity domain.Identity, ownerID int64) error {
	if identity.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}

// RequireOwnerOrStaff admits the resource owner or an elevated caller.
func RequireOwnerOrStaff(identity domain.Identity, ownerID int64) error {
	if identity.UserID == ownerID || identity.Staff {
		return nil
	}
	return ErrForbidden
}
