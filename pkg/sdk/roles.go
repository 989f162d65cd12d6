package sdk

// Role names form a small closed set. Each maps to one dashboard route.
const (
	RoleAdmin    = "Admin"
	RolePM       = "PM"
	RoleBUL      = "BUL/Lead"
	RoleEmployee = "Employee"
)

// RolePriority fixes which role becomes active first for a multi-role user.
var RolePriority = []string{RoleAdmin, RolePM, RoleBUL, RoleEmployee}

// Role is a named role assigned to a user.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Department is the organisational unit a user belongs to.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is the authenticated principal as returned by the profile endpoint.
type User struct {
	ID           string      `json:"id"`
	EmployeeCode string      `json:"employee_code"`
	FullName     string      `json:"full_name"`
	Email        string      `json:"email"`
	DepartmentID string      `json:"department_id,omitempty"`
	Department   *Department `json:"department,omitempty"`
	Roles        []Role      `json:"roles,omitempty"`
}

// RoleNames returns the names of the user's roles in assignment order.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Capability is an authorization predicate over a possibly nil user.
type Capability func(*User) bool

// HasRole reports whether user holds a role called name.
func HasRole(user *User, name string) bool {
	if user == nil {
		return false
	}
	for _, r := range user.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether user holds at least one of names.
func HasAnyRole(user *User, names ...string) bool {
	if user == nil {
		return false
	}
	for _, r := range user.Roles {
		for _, name := range names {
			if r.Name == name {
				return true
			}
		}
	}
	return false
}

func IsAdmin(user *User) bool    { return HasRole(user, RoleAdmin) }
func IsPM(user *User) bool       { return HasRole(user, RolePM) }
func IsBUL(user *User) bool      { return HasRole(user, RoleBUL) }
func IsEmployee(user *User) bool { return HasRole(user, RoleEmployee) }

// CanAccessAdmin gates the admin area.
func CanAccessAdmin(user *User) bool { return IsAdmin(user) }

// CanManageCVs is held by every managerial role.
func CanManageCVs(user *User) bool {
	return HasAnyRole(user, RoleAdmin, RolePM, RoleBUL)
}

// RequireRole returns a capability satisfied by holding the named role.
func RequireRole(name string) Capability {
	return func(user *User) bool { return HasRole(user, name) }
}

// RequireAuthenticated is satisfied by any loaded user.
func RequireAuthenticated(user *User) bool {
	return user != nil
}
