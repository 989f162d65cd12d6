package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/bunx"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts user and assigns roleNames in one transaction. An empty ID
// is filled with a UUIDv7.
func (r *BunUserRepository) Create(ctx context.Context, user *models.User, roleNames []string) error {
	if user.ID == "" {
		user.ID = bunx.NewUUIDv7()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("email = ?", user.Email).
			WhereOr("employee_code = ?", user.EmployeeCode).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check existing user: %w", err)
		}
		if taken {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}

		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return assignRoles(ctx, tx, user.ID, roleNames)
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *BunUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "u.id = ?", id)
}

// GetByEmail retrieves a user by their email
func (r *BunUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "u.email = ?", email)
}

func (r *BunUserRepository) getBy(ctx context.Context, where string, arg any) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Relation("Department").
		Relation("Roles", orderRoles).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %v: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List retrieves all users, newest first
func (r *BunUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Relation("Department").
		Relation("Roles", orderRoles).
		Order("u.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AssignRoles adds roleNames to the user. Roles the user already has are kept.
func (r *BunUserRepository) AssignRoles(ctx context.Context, userID string, roleNames []string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return assignRoles(ctx, tx, userID, roleNames)
	})
}

// UpdateLastLogin updates the last_login_at timestamp for a user
func (r *BunUserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_login_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func assignRoles(ctx context.Context, tx bun.Tx, userID string, roleNames []string) error {
	if len(roleNames) == 0 {
		return nil
	}
	roles, err := rolesByName(ctx, tx, roleNames)
	if err != nil {
		return err
	}

	links := make([]models.UserRole, 0, len(roles))
	for _, role := range roles {
		links = append(links, models.UserRole{UserID: userID, RoleID: role.ID, AssignedAt: time.Now()})
	}
	_, err = tx.NewInsert().
		Model(&links).
		On("CONFLICT (user_id, role_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("assign roles: %w", err)
	}
	return nil
}

// orderRoles keeps role lists in seed order. Role IDs are UUIDv7, so they
// sort by creation time.
func orderRoles(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("r.id ASC")
}
