package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth/bunadapter"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20251001000001, down_20251001000001)
}

type tableSpec struct {
	name        string
	model       any
	foreignKeys []string
}

var initTables = []tableSpec{
	{name: "departments", model: (*models.Department)(nil)},
	{name: "users", model: (*models.User)(nil), foreignKeys: []string{
		`("department_id") REFERENCES "departments" ("id") ON DELETE SET NULL`,
	}},
	{name: "roles", model: (*models.Role)(nil)},
	{name: "user_roles", model: (*models.UserRole)(nil), foreignKeys: []string{
		`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
		`("role_id") REFERENCES "roles" ("id") ON DELETE CASCADE`,
	}},
	{name: "revoked_tokens", model: (*models.RevokedToken)(nil)},
	{name: "casbin_rules", model: (*bunadapter.CasbinRule)(nil)},
}

// up_20251001000001 creates the account, role, revocation and policy tables
func up_20251001000001(ctx context.Context, db *bun.DB) error {
	for _, table := range initTables {
		fmt.Printf(" [up] creating %s table...", table.name)
		q := db.NewCreateTable().Model(table.model).IfNotExists()
		for _, fk := range table.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
		fmt.Println(" OK")
	}

	fmt.Print(" [up] creating indexes...")
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_user_roles_role_id ON user_roles(role_id)`,
		`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_exp ON revoked_tokens(exp)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	fmt.Println(" OK")

	return nil
}

// down_20251001000001 drops the tables in reverse dependency order
func down_20251001000001(ctx context.Context, db *bun.DB) error {
	for i := len(initTables) - 1; i >= 0; i-- {
		table := initTables[i]
		fmt.Printf(" [down] dropping %s table...", table.name)
		if _, err := db.NewDropTable().Model(table.model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table.name, err)
		}
		fmt.Println(" OK")
	}
	return nil
}
