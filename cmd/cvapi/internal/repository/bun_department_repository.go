package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/bunx"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
)

// BunDepartmentRepository implements DepartmentRepository using Bun ORM
type BunDepartmentRepository struct {
	db *bun.DB
}

// NewBunDepartmentRepository creates a new Bun-based department repository
func NewBunDepartmentRepository(db *bun.DB) *BunDepartmentRepository {
	return &BunDepartmentRepository{db: db}
}

// Create inserts a department, failing with ErrDuplicate on a taken name.
func (r *BunDepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = bunx.NewUUIDv7()
	}
	res, err := r.db.NewInsert().
		Model(dept).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("department %s: %w", dept.Name, ErrDuplicate)
	}
	return nil
}

// GetByID retrieves a department by its ID
func (r *BunDepartmentRepository) GetByID(ctx context.Context, id string) (*models.Department, error) {
	dept := new(models.Department)
	err := r.db.NewSelect().Model(dept).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("department %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return dept, nil
}

// List retrieves all departments ordered by name
func (r *BunDepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	var depts []models.Department
	if err := r.db.NewSelect().Model(&depts).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return depts, nil
}
