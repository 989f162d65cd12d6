package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Department groups employees. Users reference it optionally.
type Department struct {
	bun.BaseModel `bun:"table:departments,alias:d"`

	ID        string    `bun:"id,pk,type:varchar(36)"`
	Name      string    `bun:"name,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// User is an employee account. PasswordHash holds the bcrypt hash used by
// /auth/login.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string      `bun:"id,pk,type:varchar(36)"`
	EmployeeCode string      `bun:"employee_code,notnull,unique"`
	FullName     string      `bun:"full_name,notnull"`
	Email        string      `bun:"email,notnull,unique"`
	PasswordHash string      `bun:"password_hash,notnull"`
	DepartmentID *string     `bun:"department_id,type:varchar(36)"`
	Department   *Department `bun:"rel:belongs-to,join:department_id=id"`
	Roles        []Role      `bun:"m2m:user_roles,join:User=Role"`
	CreatedAt    time.Time   `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time   `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time  `bun:"last_login_at"`
}

// RoleNames returns the names of the loaded roles in order.
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

// Role is one of Admin, PM, BUL/Lead or Employee. Casbin policies are keyed by
// the role name.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string    `bun:"id,pk,type:varchar(36)"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// UserRole is the many-to-many join between users and roles.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID     string    `bun:"user_id,pk,type:varchar(36)"`
	User       *User     `bun:"rel:belongs-to,join:user_id=id"`
	RoleID     string    `bun:"role_id,pk,type:varchar(36)"`
	Role       *Role     `bun:"rel:belongs-to,join:role_id=id"`
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
}

// Token kinds stored on RevokedToken.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// RevokedToken is a denylist entry keyed by the JWT jti claim. Exp is kept so
// expired rows can be pruned.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens,alias:rt"`

	JTI       string    `bun:"jti,pk,type:varchar(64)"`
	Subject   string    `bun:"subject,notnull"`
	Kind      string    `bun:"kind,notnull"`
	Exp       time.Time `bun:"exp,notnull"`
	RevokedAt time.Time `bun:"revoked_at,notnull,default:current_timestamp"`
}

// Register makes the join models known to bun. It must run before any m2m
// relation is queried.
func Register(db *bun.DB) {
	db.RegisterModel((*UserRole)(nil))
}
