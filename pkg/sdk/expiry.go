package sdk

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errNoExpiry = errors.New("token has no exp claim")

// ExpiryGuard predicts whether a JWT is already dead by reading its exp claim
// without verifying the signature. It only saves a round trip; the server's
// 401 stays authoritative.
type ExpiryGuard struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Leeway treats tokens that expire within this window as expired.
	Leeway time.Duration
}

var defaultExpiryGuard = ExpiryGuard{}

// IsExpired reports whether token is expired according to the wall clock.
func IsExpired(token string) bool {
	return defaultExpiryGuard.IsExpired(token)
}

// ExpiresAt returns the exp claim of token.
func ExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, errNoExpiry
	}
	return exp.Time, nil
}

// IsExpired returns true when the token cannot be decoded, carries no usable
// exp claim, or its exp is not after now plus leeway.
func (g ExpiryGuard) IsExpired(token string) bool {
	if token == "" {
		return true
	}
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return !exp.After(now().Add(g.Leeway))
}
