package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/scholarhub/apiserver/internal/store"
	"github.com/scholarhub/apiserver/types"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// WithIdentity attaches an authenticated identity to ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

// IdentityFromContext returns the identity attached by the auth guard.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	return identity, ok
}

// Authenticate extracts and verifies the bearer token of r. It performs no
// store access.
func (i *Issuer) Authenticate(r *http.Request) (Identity, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return i.Verify(tokenString)
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

// RoleSet is the set of roles a route admits. Membership is exact: roles do
// not inherit from one another.
type RoleSet []types.Role

var (
	AdminOnly = RoleSet{types.RoleAdmin}
	Staff     = RoleSet{types.RoleAdmin, types.RoleModerator}
)

// Allows reports whether role is a member of the set.
func (s RoleSet) Allows(role types.Role) bool {
	for _, allowed := range s {
		if allowed == role {
			return true
		}
	}
	return false
}

// UserLookup resolves the stored user behind an identity.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// RoleGuard authorizes identities against the role stored in the user record.
type RoleGuard struct {
	users UserLookup
}

func NewRoleGuard(users UserLookup) *RoleGuard {
	return &RoleGuard{users: users}
}

// Require returns the caller's user record when its role is in allowed.
// An unknown user is forbidden. Lookup failures other than not-found are
// returned unwrapped so callers can report them as server errors.
func (g *RoleGuard) Require(ctx context.Context, identity Identity, allowed RoleSet) (types.User, error) {
	user, err := g.users.GetByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: unknown user", ErrForbidden)
		}
		return types.User{}, err
	}
	if !allowed.Allows(user.Role) {
		return types.User{}, fmt.Errorf("%w: role %q not permitted", ErrForbidden, user.Role)
	}
	return user, nil
}

// HasRole is a non-failing variant of Require for handlers that widen access
// for staff, such as owners-or-staff routes.
func (g *RoleGuard) HasRole(ctx context.Context, identity Identity, allowed RoleSet) (bool, error) {
	_, err := g.Require(ctx, identity, allowed)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrForbidden) {
		return false, nil
	}
	return false, err
}
