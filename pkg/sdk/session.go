package sdk

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Session ties a Client to the user it authenticated and that user's role
// scope. It owns the resolution state DashboardGuard waits on.
type Session struct {
	client *Client
	nav    Navigator
	routes RouteTable
	guard  ExpiryGuard
	log    logrus.FieldLogger

	mu           sync.RWMutex
	user         *User
	scope        *RoleScope
	unsubscribe  func()
	resolved     chan struct{}
	resolvedDone bool
	// generation changes on every resolution start and every forget. A
	// resolution only installs its user if the generation it started with
	// is still current.
	generation uint64
	// resolving is the generation of the latest resolution started.
	resolving uint64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRoutes overrides the route table used for role dashboards and guards.
func WithRoutes(routes RouteTable) SessionOption {
	return func(s *Session) {
		s.routes = routes
	}
}

// NewSession creates an unresolved session over client.
func NewSession(client *Client, opts ...SessionOption) *Session {
	s := &Session{
		client:   client,
		nav:      client.refresher.nav,
		routes:   DefaultRouteTable(),
		guard:    client.refresher.guard,
		log:      client.log,
		resolved: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	client.store.Subscribe(func(creds Credentials) {
		if creds.Empty() {
			s.forget()
		}
	})
	return s
}

// Client returns the underlying API client.
func (s *Session) Client() *Client { return s.client }

// Routes returns the session's route table.
func (s *Session) Routes() RouteTable { return s.routes }

// Navigator returns the navigator redirects go through, which may be nil.
func (s *Session) Navigator() Navigator { return s.nav }

// Resolved returns a channel closed once the current resolution finished.
func (s *Session) Resolved() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved
}

// IsResolved reports whether the session knows whether a user is signed in.
func (s *Session) IsResolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolvedDone
}

// User returns the signed-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Scope returns the role scope of the signed-in user, or nil.
func (s *Session) Scope() *RoleScope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// Resolve determines the signed-in user from the stored tokens. Tokens that
// cannot lead to a session are cleared. Any failure loading the profile ends
// the session and redirects to login unless the current route is public.
// Resolve never leaves the session unresolved.
//
// A Logout or Login that lands while the profile is loading wins: the loaded
// user is dropped and Resolve returns ErrSessionEnded.
func (s *Session) Resolve(ctx context.Context) error {
	gen := s.beginResolve()

	user, err := s.loadUser(ctx)
	if err != nil {
		s.finishResolve(gen, nil)
		return err
	}
	if !s.finishResolve(gen, user) && user != nil {
		return ErrSessionEnded
	}
	return nil
}

func (s *Session) loadUser(ctx context.Context) (*User, error) {
	creds := s.client.store.Get()
	if creds.AccessToken == "" {
		return nil, nil
	}

	if _, err := ExpiresAt(creds.AccessToken); err != nil {
		s.log.WithError(err).Warn("stored access token is malformed, clearing session")
		return nil, s.client.store.Clear()
	}
	if s.guard.IsExpired(creds.AccessToken) && creds.RefreshToken == "" {
		s.log.Info("stored access token expired and no refresh token, clearing session")
		return nil, s.client.store.Clear()
	}

	user, err := s.client.Profile(ctx)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, ErrSessionEnded), errors.Is(err, ErrRefreshFailed), ctx.Err() != nil:
		return nil, err
	}

	s.log.WithError(err).Warn("failed to load profile, clearing session")
	if clearErr := s.client.store.Clear(); clearErr != nil {
		s.log.WithError(clearErr).Warn("failed to delete stored credentials")
	}
	s.redirectToLogin()
	return nil, err
}

// Login authenticates and starts a fresh role scope for the returned user.
// If the session is logged out or resolved again before the login response
// arrives, the user is not installed and ErrSessionEnded is returned.
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	gen := s.beginResolve()
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		// A rejected login leaves any existing user in place.
		s.markResolved(gen)
		return nil, err
	}
	user := res.User
	if !s.finishResolve(gen, &user) {
		// Tokens stored after a logout would sign the user back in on the
		// next Resolve.
		if creds, version := s.client.store.Snapshot(); creds.AccessToken == res.Token {
			if _, err := s.client.store.ClearIf(version); err != nil {
				s.log.WithError(err).Warn("failed to delete stored credentials")
			}
		}
		return nil, ErrSessionEnded
	}
	return &user, nil
}

// Logout ends the session on the server (best effort), discards the user and
// their role scope, and navigates to the login page.
func (s *Session) Logout(ctx context.Context) error {
	err := s.client.Logout(ctx)
	s.forget()
	if s.nav != nil {
		s.nav.Navigate(LoginRoute)
	}
	return err
}

// SwitchRole switches the active role. It is a no-op returning false when no
// user is signed in or the user does not hold the role.
func (s *Session) SwitchRole(name string) bool {
	scope := s.Scope()
	if scope == nil {
		return false
	}
	return scope.Switch(name)
}

func (s *Session) beginResolve() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolvedDone {
		s.resolved = make(chan struct{})
		s.resolvedDone = false
	}
	s.generation++
	s.resolving = s.generation
	return s.generation
}

// finishResolve installs user unless the session moved past gen, and reports
// whether it did. The resolved channel is closed unless a newer resolution
// is still running.
func (s *Session) finishResolve(gen uint64, user *User) bool {
	s.mu.RLock()
	stale := s.generation != gen
	s.mu.RUnlock()
	if stale {
		s.markResolved(gen)
		return false
	}

	var scope *RoleScope
	if user != nil {
		var err error
		scope, err = NewRoleScope(user, WithRouteTable(s.routes))
		if err != nil {
			s.log.WithField("user_id", user.ID).WithError(err).Warn("user has no role scope")
		}
	}

	var unsubscribe func()
	if scope != nil && s.nav != nil {
		nav := s.nav
		unsubscribe = scope.Subscribe(func(_ Role, route string) {
			nav.Navigate(route)
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		if unsubscribe != nil {
			unsubscribe()
		}
		if s.resolving == gen {
			s.closeResolvedLocked()
		}
		return false
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.user = user
	s.scope = scope
	s.unsubscribe = unsubscribe
	s.closeResolvedLocked()
	return true
}

// markResolved closes the resolved channel unless a resolution newer than gen
// is still running; that one closes it when it finishes.
func (s *Session) markResolved(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolving == gen {
		s.closeResolvedLocked()
	}
}

func (s *Session) closeResolvedLocked() {
	if !s.resolvedDone {
		close(s.resolved)
		s.resolvedDone = true
	}
}

// forget drops the user and scope so nothing leaks into the next session.
func (s *Session) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.user = nil
	s.scope = nil
	s.generation++
}

func (s *Session) redirectToLogin() {
	if s.nav == nil {
		return
	}
	if current := s.nav.CurrentRoute(); !IsPublicRoute(current) {
		s.nav.Navigate(LoginRoute)
	}
}
