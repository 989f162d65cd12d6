package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// refresher exchanges the stored refresh token for a new access token. All
// callers that need a refresh at the same time share one request to the
// refresh endpoint.
type refresher struct {
	baseURL string
	http    *http.Client // must not route through SessionTransport
	store   *TokenStore
	guard   ExpiryGuard
	nav     Navigator
	log     logrus.FieldLogger

	group singleflight.Group
}

// refresh returns an access token that supersedes stale. When the store already
// holds a different token, a concurrent refresh finished first and that token
// is returned without calling the server.
//
// The shared flight runs detached from ctx so one caller giving up does not
// fail the others; ctx only bounds how long this caller waits.
func (r *refresher) refresh(ctx context.Context, stale string) (string, error) {
	if current := r.store.Get().AccessToken; current != "" && current != stale {
		return current, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(refreshFlightKey, func() (any, error) {
		return r.exchange(flightCtx, stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// exchange posts the stored refresh token unless the store already moved past
// stale. A flight that finished between the caller's check and this one has
// consumed the old refresh token, so reusing it would fail.
func (r *refresher) exchange(ctx context.Context, stale string) (string, error) {
	creds, version := r.store.Snapshot()
	if creds.AccessToken != "" && creds.AccessToken != stale {
		return creds.AccessToken, nil
	}

	if creds.RefreshToken == "" {
		return "", r.fail(version, ErrNoRefreshToken)
	}
	if r.guard.IsExpired(creds.RefreshToken) {
		return "", r.fail(version, ErrInvalidRefreshToken)
	}

	r.log.Debug("refreshing access token")
	pair, err := r.post(ctx, creds.RefreshToken)
	if err != nil {
		return "", r.fail(version, err)
	}

	applied, err := r.store.Rotate(version, pair.Token, pair.RefreshToken)
	if err != nil {
		return "", &RefreshError{Cause: err}
	}
	if !applied {
		r.log.Info("session changed during token refresh, discarding result")
		return "", ErrSessionEnded
	}

	r.log.WithField("rotated_refresh", pair.RefreshToken != "").Debug("access token refreshed")
	return pair.Token, nil
}

func (r *refresher) post(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body, err := json.Marshal(RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call refresh endpoint: %w", err)
	}

	var pair TokenPair
	if err := decodeEnvelope(resp, &pair); err != nil {
		return nil, err
	}
	if pair.Token == "" {
		return nil, fmt.Errorf("refresh response has no access token")
	}
	return &pair, nil
}

// fail tears down the session that was current at version and sends the user
// to the login page unless they are on a public route. When another write
// already replaced that session, nothing is torn down.
func (r *refresher) fail(version uint64, cause error) error {
	cleared, err := r.store.ClearIf(version)
	if err != nil {
		r.log.WithError(err).Warn("failed to delete stored credentials")
	}
	if !cleared {
		r.log.Info("session changed during token refresh, skipping teardown")
		return ErrSessionEnded
	}

	r.log.WithError(cause).Warn("token refresh failed, session cleared")
	if r.nav != nil {
		if current := r.nav.CurrentRoute(); !IsPublicRoute(current) {
			r.log.WithField("from", current).Info("redirecting to login")
			r.nav.Navigate(LoginRoute)
		}
	}
	return &RefreshError{Cause: cause}
}

func bearer(token string) string {
	return "Bearer " + strings.TrimSpace(token)
}
