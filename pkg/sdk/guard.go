package sdk

import "context"

// GuardState is the state of a DashboardGuard for one route.
type GuardState int

const (
	// GuardLoading means session resolution is still pending.
	GuardLoading GuardState = iota
	// GuardRedirecting means the route must not render; see Redirect.
	GuardRedirecting
	// GuardRendering means the route renders with the current scope.
	GuardRendering
)

func (s GuardState) String() string {
	switch s {
	case GuardLoading:
		return "loading"
	case GuardRedirecting:
		return "redirecting"
	case GuardRendering:
		return "rendering"
	default:
		return "unknown"
	}
}

// GuardDecision is the outcome of evaluating a route.
type GuardDecision struct {
	State    GuardState
	Path     string
	Redirect string
	User     *User
	Scope    *ScopeSnapshot
}

// DashboardGuard decides whether a protected route renders for the session's
// user.
type DashboardGuard struct {
	session *Session
}

// NewDashboardGuard returns a guard over session.
func NewDashboardGuard(session *Session) *DashboardGuard {
	return &DashboardGuard{session: session}
}

// Evaluate returns the decision for path without waiting. It never redirects
// before the session is resolved.
func (g *DashboardGuard) Evaluate(path string) GuardDecision {
	path = normalizeRoute(path)
	if !g.session.IsResolved() {
		return GuardDecision{State: GuardLoading, Path: path}
	}

	user := g.session.User()
	var snap *ScopeSnapshot
	if scope := g.session.Scope(); scope != nil {
		s := scope.Snapshot()
		snap = &s
	}

	if IsPublicRoute(path) {
		return GuardDecision{State: GuardRendering, Path: path, User: user, Scope: snap}
	}
	if user == nil {
		return GuardDecision{State: GuardRedirecting, Path: path, Redirect: LoginRoute}
	}

	fallback := DashboardRoute
	if snap != nil {
		fallback = snap.Dashboard
	}

	route, _ := g.session.Routes().Lookup(path)
	if !route.Require(user) {
		if fallback == path {
			fallback = DashboardRoute
		}
		return GuardDecision{State: GuardRedirecting, Path: path, Redirect: fallback, User: user, Scope: snap}
	}

	// The chooser only makes sense with more than one role.
	if path == DashboardRoute && snap != nil && len(snap.Available) == 1 && fallback != DashboardRoute {
		return GuardDecision{State: GuardRedirecting, Path: path, Redirect: fallback, User: user, Scope: snap}
	}

	return GuardDecision{State: GuardRendering, Path: path, User: user, Scope: snap}
}

// Await waits for session resolution, evaluates path and performs the
// redirect through the session's navigator when the decision is to redirect.
func (g *DashboardGuard) Await(ctx context.Context, path string) (GuardDecision, error) {
	select {
	case <-g.session.Resolved():
	case <-ctx.Done():
		return GuardDecision{State: GuardLoading, Path: normalizeRoute(path)}, ctx.Err()
	}

	decision := g.Evaluate(path)
	if decision.State == GuardRedirecting {
		if nav := g.session.Navigator(); nav != nil {
			nav.Navigate(decision.Redirect)
		}
	}
	return decision, nil
}
