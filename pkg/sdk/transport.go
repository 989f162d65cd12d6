package sdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// sendFunc performs one attempt of a request carrying token.
type sendFunc func(ctx context.Context, token string) (*http.Response, error)

// refreshFunc returns an access token that supersedes stale.
type refreshFunc func(ctx context.Context, stale string) (string, error)

// withSingleRetryOnAuthFailure runs send with token. If the attempt fails
// authorization (a 401 response, or ErrLocallyExpiredToken before anything was
// sent) it refreshes once and sends once more. The second outcome is returned
// as is, whatever it is.
func withSingleRetryOnAuthFailure(ctx context.Context, token string, send sendFunc, refresh refreshFunc) (*http.Response, error) {
	resp, err := send(ctx, token)
	switch {
	case errors.Is(err, ErrLocallyExpiredToken):
	case err != nil:
		return nil, err
	case resp.StatusCode != http.StatusUnauthorized:
		return resp, nil
	default:
		discard(resp)
	}

	fresh, err := refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	return send(ctx, fresh)
}

// SessionTransport is an http.RoundTripper that attaches the session's access
// token to every request and recovers from one authorization failure per
// request by refreshing the token and replaying the request.
type SessionTransport struct {
	base      http.RoundTripper
	store     *TokenStore
	guard     ExpiryGuard
	refresher *refresher
}

// RoundTrip implements http.RoundTripper.
func (t *SessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := rewindableBody(req)
	if err != nil {
		return nil, err
	}

	send := func(ctx context.Context, token string) (*http.Response, error) {
		if token != "" && t.guard.IsExpired(token) {
			return nil, ErrLocallyExpiredToken
		}
		attempt := req.Clone(ctx)
		if body != nil {
			rc, err := body()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			attempt.Body = rc
		}
		if token == "" {
			attempt.Header.Del("Authorization")
		} else {
			attempt.Header.Set("Authorization", bearer(token))
		}
		return t.base.RoundTrip(attempt)
	}

	return withSingleRetryOnAuthFailure(req.Context(), t.store.Get().AccessToken, send, t.refresher.refresh)
}

// rewindableBody returns a function producing a fresh copy of the request body
// for each attempt, or nil when the request has none. The original body is
// consumed and closed.
func rewindableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}

	buf, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
