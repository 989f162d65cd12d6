package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/uptrace/bun"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth/bunadapter"
)

//go:embed model.conf
var casbinModelContent string

// Role names as stored in the roles table.
const (
	RoleAdmin    = "Admin"
	RolePM       = "PM"
	RoleBUL      = "BUL/Lead"
	RoleEmployee = "Employee"
)

// DefaultRoles lists the seeded roles with their descriptions.
var DefaultRoles = []struct{ Name, Description string }{
	{RoleAdmin, "Full access to administration and every dashboard"},
	{RolePM, "Project manager dashboard and CV review"},
	{RoleBUL, "Business unit lead dashboard and CV review"},
	{RoleEmployee, "Own dashboard and CV"},
}

// DefaultPolicies returns the seeded role policies: role, object, action.
func DefaultPolicies() []*bunadapter.CasbinRule {
	return []*bunadapter.CasbinRule{
		bunadapter.NewRule("p", RoleID(RoleAdmin), "/*", "*"),
		bunadapter.NewRule("p", RoleID(RolePM), "/dashboards/pm", "GET"),
		bunadapter.NewRule("p", RoleID(RoleBUL), "/dashboards/bulorlead", "GET"),
		bunadapter.NewRule("p", RoleID(RoleEmployee), "/dashboards/employee", "GET"),
	}
}

// InitEnforcer creates a Casbin enforcer from the embedded model, backed by
// the casbin_rules table on db.
func InitEnforcer(db *bun.DB) (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, bunadapter.NewAdapter(db))
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}
	return enforcer, nil
}

// Authorize reports whether any of roles may perform act on obj. Roles are
// resolved at authentication time, so the enforcer is only read here.
func Authorize(enforcer casbin.IEnforcer, roles []string, obj, act string) (bool, error) {
	for _, sub := range RoleSubjects(roles) {
		ok, err := enforcer.Enforce(sub, obj, act)
		if err != nil {
			return false, fmt.Errorf("enforce %s on %s %s: %w", sub, act, obj, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
