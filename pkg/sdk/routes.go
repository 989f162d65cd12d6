package sdk

import (
	"strings"
	"sync"
)

// Well-known routes.
const (
	LandingRoute   = "/"
	LoginRoute     = "/login"
	RegisterRoute  = "/register"
	DashboardRoute = "/dashboard"
)

// PublicRoutes are reachable without a session. A failed refresh never
// redirects away from one of these.
var PublicRoutes = []string{LandingRoute, LoginRoute, RegisterRoute}

// IsPublicRoute reports whether path is one of PublicRoutes.
func IsPublicRoute(path string) bool {
	path = normalizeRoute(path)
	for _, p := range PublicRoutes {
		if p == path {
			return true
		}
	}
	return false
}

// Route is a protected page and the capability required to render it.
type Route struct {
	Path    string
	Role    string // empty for routes not tied to a single role
	Require Capability
}

// RouteTable is the declarative Role -> Route mapping shared by RoleScope and
// DashboardGuard.
type RouteTable struct {
	byRole map[string]Route
	byPath map[string]Route
}

// DefaultRouteTable returns the dashboards of the four built-in roles plus the
// multi-role chooser.
func DefaultRouteTable() RouteTable {
	return NewRouteTable(
		Route{Path: "/admin", Role: RoleAdmin, Require: CanAccessAdmin},
		Route{Path: "/pm/dashboard", Role: RolePM, Require: RequireRole(RolePM)},
		Route{Path: "/bulorlead/dashboard", Role: RoleBUL, Require: RequireRole(RoleBUL)},
		Route{Path: "/employee/dashboard", Role: RoleEmployee, Require: RequireRole(RoleEmployee)},
		Route{Path: DashboardRoute, Require: RequireAuthenticated},
	)
}

// NewRouteTable builds a table from routes. Routes without Require default to
// RequireAuthenticated.
func NewRouteTable(routes ...Route) RouteTable {
	t := RouteTable{
		byRole: make(map[string]Route),
		byPath: make(map[string]Route),
	}
	for _, r := range routes {
		r.Path = normalizeRoute(r.Path)
		if r.Require == nil {
			r.Require = RequireAuthenticated
		}
		t.byPath[r.Path] = r
		if r.Role != "" {
			t.byRole[r.Role] = r
		}
	}
	return t
}

// DashboardFor returns the dashboard path of role.
func (t RouteTable) DashboardFor(role string) (string, bool) {
	r, ok := t.byRole[role]
	return r.Path, ok
}

// Lookup returns the route registered at path. Unregistered paths get a route
// that only requires authentication.
func (t RouteTable) Lookup(path string) (Route, bool) {
	path = normalizeRoute(path)
	if r, ok := t.byPath[path]; ok {
		return r, true
	}
	return Route{Path: path, Require: RequireAuthenticated}, false
}

func normalizeRoute(path string) string {
	if path == "" {
		return LandingRoute
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// Navigator is the collaborator that owns the current location and performs
// redirects.
type Navigator interface {
	CurrentRoute() string
	Navigate(route string)
}

// MemoryNavigator is a Navigator that records where it was sent.
type MemoryNavigator struct {
	mu      sync.Mutex
	current string
	history []string
}

// NewMemoryNavigator starts at route.
func NewMemoryNavigator(route string) *MemoryNavigator {
	return &MemoryNavigator{current: normalizeRoute(route)}
}

func (n *MemoryNavigator) CurrentRoute() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *MemoryNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = normalizeRoute(route)
	n.history = append(n.history, n.current)
}

// History returns every route navigated to, oldest first.
func (n *MemoryNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}
