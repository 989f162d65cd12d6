package auth

import (
	"fmt"
	"strings"
)

// Casbin subjects are namespaced so a role called "user" can never collide
// with an account id.
const (
	PrefixUser = "user:"
	PrefixRole = "role:"
)

// UserID is the subject for an account, "user:<users.id>".
func UserID(id string) string { return PrefixUser + id }

// RoleID is the subject for a role name, e.g. "role:BUL/Lead".
func RoleID(name string) string { return PrefixRole + name }

// RoleSubjects maps role names to their Casbin subjects, keeping order.
func RoleSubjects(roles []string) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = RoleID(r)
	}
	return out
}

// RoleName is the inverse of RoleID. ok is false for non-role subjects.
func RoleName(subject string) (name string, ok bool) {
	return strings.CutPrefix(subject, PrefixRole)
}

// ExtractUserID returns the users.id behind a "user:" subject.
func ExtractUserID(principal string) (string, error) {
	id, ok := strings.CutPrefix(principal, PrefixUser)
	if !ok || id == "" {
		return "", fmt.Errorf("%q is not a user subject", principal)
	}
	return id, nil
}
