package auth

import (
	"context"
	"slices"
	"time"
)

// AuthenticatedPrincipal is what authn leaves on the request context after
// a bearer token checks out against the revocation list and the users table.
type AuthenticatedPrincipal struct {
	PrincipalID string // Casbin subject, see UserID
	UserID      string
	Email       string
	// Roles come from the database, not the token, so a revoked role stops
	// working on the next request.
	Roles       []string
	TokenID     string // jti of the presented access token
	TokenExpiry int64  // exp of the presented access token, unix seconds
}

// HasRole reports whether the principal currently holds role.
func (p AuthenticatedPrincipal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// ExpiresAt is TokenExpiry as a time. Logout revokes the jti until then.
func (p AuthenticatedPrincipal) ExpiresAt() time.Time {
	return time.Unix(p.TokenExpiry, 0)
}

type principalKey struct{}

// SetUserContext returns a copy of ctx carrying principal.
func SetUserContext(ctx context.Context, principal AuthenticatedPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetUserFromContext returns the principal stored by SetUserContext.
func GetUserFromContext(ctx context.Context) (AuthenticatedPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(AuthenticatedPrincipal)
	return p, ok
}
