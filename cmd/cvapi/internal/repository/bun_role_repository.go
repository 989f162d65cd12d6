package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/uptrace/bun"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
)

// BunRoleRepository implements RoleRepository using Bun ORM
type BunRoleRepository struct {
	db *bun.DB
}

// NewBunRoleRepository creates a new Bun-based role repository
func NewBunRoleRepository(db *bun.DB) *BunRoleRepository {
	return &BunRoleRepository{db: db}
}

// List retrieves all roles in seed order
func (r *BunRoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := orderRoles(r.db.NewSelect().Model(&roles)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GetByNames resolves role names, failing with ErrUnknownRole if any is missing.
func (r *BunRoleRepository) GetByNames(ctx context.Context, names []string) ([]models.Role, error) {
	return rolesByName(ctx, r.db, names)
}

func rolesByName(ctx context.Context, db bun.IDB, names []string) ([]models.Role, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return nil, nil
	}

	var roles []models.Role
	err := db.NewSelect().
		Model(&roles).
		Where("r.name IN (?)", bun.In(names)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get roles by name: %w", err)
	}

	for _, name := range names {
		if !slices.ContainsFunc(roles, func(role models.Role) bool { return role.Name == name }) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRole, name)
		}
	}
	return roles, nil
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
