package sdk

import (
	"errors"
	"sync"
)

// ErrNoRoles is returned when a role scope is built for a user without roles.
var ErrNoRoles = errors.New("user has no roles")

// ScopeSnapshot is a point-in-time copy of a RoleScope.
type ScopeSnapshot struct {
	Active    Role
	Available []Role
	Dashboard string
}

// RoleScope tracks which of a user's roles is active. The active role is
// always one of the user's roles and changes only through Switch.
type RoleScope struct {
	routes RouteTable

	mu        sync.RWMutex
	active    Role
	available []Role

	subMu  sync.Mutex
	subs   map[int]func(Role, string)
	nextID int
}

// RoleScopeOption configures a RoleScope.
type RoleScopeOption func(*RoleScope)

// WithRouteTable overrides the Role -> Route table used to resolve dashboards.
func WithRouteTable(routes RouteTable) RoleScopeOption {
	return func(s *RoleScope) {
		s.routes = routes
	}
}

// NewRoleScope builds the scope for user. The initial active role is the first
// of RolePriority the user holds, or the user's first role when none match.
func NewRoleScope(user *User, opts ...RoleScopeOption) (*RoleScope, error) {
	if user == nil || len(user.Roles) == 0 {
		return nil, ErrNoRoles
	}

	s := &RoleScope{
		routes:    DefaultRouteTable(),
		available: append([]Role(nil), user.Roles...),
		subs:      make(map[int]func(Role, string)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.active = DefaultActiveRole(s.available)
	return s, nil
}

// DefaultActiveRole picks the initial active role from roles. roles must not
// be empty.
func DefaultActiveRole(roles []Role) Role {
	for _, name := range RolePriority {
		for _, r := range roles {
			if r.Name == name {
				return r
			}
		}
	}
	return roles[0]
}

// Active returns the active role.
func (s *RoleScope) Active() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Available returns a copy of the user's roles.
func (s *RoleScope) Available() []Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Role(nil), s.available...)
}

// Snapshot returns the active role, the available roles and the dashboard of
// the active role.
func (s *RoleScope) Snapshot() ScopeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ScopeSnapshot{
		Active:    s.active,
		Available: append([]Role(nil), s.available...),
		Dashboard: s.dashboard(s.active),
	}
}

// Dashboard returns the route of the active role's dashboard.
func (s *RoleScope) Dashboard() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dashboard(s.active)
}

// Switch makes the role named name active and notifies subscribers with the
// role and its dashboard route. It is a no-op returning false when the user
// does not hold that role.
func (s *RoleScope) Switch(name string) bool {
	s.mu.Lock()
	var target *Role
	for i := range s.available {
		if s.available[i].Name == name {
			target = &s.available[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return false
	}
	s.active = *target
	role, route := s.active, s.dashboard(s.active)
	s.mu.Unlock()

	s.notify(role, route)
	return true
}

// Subscribe registers fn to be called after every successful Switch. The
// returned function removes the subscription.
func (s *RoleScope) Subscribe(fn func(role Role, route string)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *RoleScope) dashboard(role Role) string {
	if route, ok := s.routes.DashboardFor(role.Name); ok {
		return route
	}
	return DashboardRoute
}

func (s *RoleScope) notify(role Role, route string) {
	s.subMu.Lock()
	fns := make([]func(Role, string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(role, route)
	}
}
