package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth/bunadapter"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/bunx"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20251001000002, down_20251001000002)
}

// up_20251001000002 seeds the four roles and their dashboard policies
func up_20251001000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding default roles...")
	for _, def := range auth.DefaultRoles {
		role := models.Role{ID: bunx.NewUUIDv7(), Name: def.Name, Description: def.Description}
		_, err := db.NewInsert().
			Model(&role).
			On("CONFLICT (name) DO NOTHING"). // Idempotent
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", def.Name, err)
		}
	}
	fmt.Println(" OK")

	fmt.Print(" [up] seeding default Casbin policies...")
	policies := auth.DefaultPolicies()
	_, err := db.NewInsert().
		Model(&policies).
		On("CONFLICT (ptype, v0, v1, v2, v3, v4, v5) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed Casbin policies: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20251001000002 removes seeded policies and roles
func down_20251001000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing seeded Casbin policies...")
	roleIDs := make([]string, 0, len(auth.DefaultRoles))
	names := make([]string, 0, len(auth.DefaultRoles))
	for _, def := range auth.DefaultRoles {
		roleIDs = append(roleIDs, auth.RoleID(def.Name))
		names = append(names, def.Name)
	}
	_, err := db.NewDelete().
		Model((*bunadapter.CasbinRule)(nil)).
		Where("v0 IN (?)", bun.In(roleIDs)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove seeded policies: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [down] removing seeded roles...")
	_, err = db.NewDelete().
		Model((*models.Role)(nil)).
		Where("name IN (?)", bun.In(names)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove seeded roles: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
