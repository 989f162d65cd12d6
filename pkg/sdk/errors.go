package sdk

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrLocallyExpiredToken means the access token was already past its exp
	// claim, so the request was not sent before refreshing.
	ErrLocallyExpiredToken = errors.New("access token expired locally")

	// ErrUnauthorized matches any 401 response.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRefreshFailed matches every *RefreshError.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrNoRefreshToken means a refresh was needed but none is stored.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrInvalidRefreshToken means the stored refresh token is malformed or
	// expired, so the refresh endpoint was not called.
	ErrInvalidRefreshToken = errors.New("refresh token is malformed or expired")

	// ErrSessionEnded means the session was cleared or replaced while a
	// refresh was in flight and its result was discarded.
	ErrSessionEnded = errors.New("session ended during token refresh")
)

// RefreshError is terminal for the session: tokens are cleared and the user is
// sent to the login page unless already on a public route.
type RefreshError struct {
	Cause error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRefreshFailed, e.Cause)
}

func (e *RefreshError) Unwrap() error { return e.Cause }

func (e *RefreshError) Is(target error) bool {
	return target == ErrRefreshFailed
}

// HTTPError is a non-2xx response surfaced to the caller.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request failed: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}
