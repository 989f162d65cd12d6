package repository

import (
	"context"
	"errors"
	"time"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique field (email, employee code, name) is taken.
	ErrDuplicate = errors.New("already exists")
	// ErrUnknownRole is returned when assigning a role name that is not seeded.
	ErrUnknownRole = errors.New("unknown role")
)

// UserRepository exposes persistence operations for employee accounts.
// Returned users always have Roles and Department loaded.
type UserRepository interface {
	Create(ctx context.Context, user *models.User, roleNames []string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	AssignRoles(ctx context.Context, userID string, roleNames []string) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// RoleRepository exposes the seeded roles.
type RoleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	GetByNames(ctx context.Context, names []string) ([]models.Role, error)
}

// DepartmentRepository exposes persistence operations for departments.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *models.Department) error
	GetByID(ctx context.Context, id string) (*models.Department, error)
	List(ctx context.Context) ([]models.Department, error)
}

// RevokedTokenRepository is the JWT denylist keyed by jti.
type RevokedTokenRepository interface {
	// Revoke records the token and reports whether this call revoked it.
	// Revoking an already revoked jti returns false, which lets refresh
	// rotation detect reuse without a separate lookup.
	Revoke(ctx context.Context, token *models.RevokedToken) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// DeleteExpired removes entries whose exp is older than now minus grace.
	DeleteExpired(ctx context.Context, grace time.Duration) (int64, error)
}
