package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/bunx"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/migrations"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()
	db, err := bunx.NewDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	_, err = migrations.Apply(ctx, db)
	require.NoError(t, err)
	return db
}

func newUser(code, email string) *models.User {
	return &models.User{
		EmployeeCode: code,
		FullName:     "Test " + code,
		Email:        email,
		PasswordHash: "hash",
	}
}

func TestBunRoleRepository_ListSeeded(t *testing.T) {
	repo := NewBunRoleRepository(setupTestDB(t))

	roles, err := repo.List(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Admin", "PM", "BUL/Lead", "Employee"}, names)
}

func TestBunRoleRepository_GetByNames(t *testing.T) {
	repo := NewBunRoleRepository(setupTestDB(t))
	ctx := context.Background()

	roles, err := repo.GetByNames(ctx, []string{"PM", "PM", "Employee"})
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	_, err = repo.GetByNames(ctx, []string{"PM", "Intern"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestBunUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	users := NewBunUserRepository(db)
	depts := NewBunDepartmentRepository(db)
	ctx := context.Background()

	dept := &models.Department{Name: "Engineering"}
	require.NoError(t, depts.Create(ctx, dept))

	user := newUser("E001", "alice@example.com")
	user.DepartmentID = &dept.ID
	require.NoError(t, users.Create(ctx, user, []string{"Employee", "PM"}))
	assert.NotEmpty(t, user.ID)

	got, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, []string{"PM", "Employee"}, got.RoleNames(), "roles come back in seed order")
	require.NotNil(t, got.Department)
	assert.Equal(t, "Engineering", got.Department.Name)

	byID, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Email, byID.Email)

	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunUserRepository_CreateDuplicate(t *testing.T) {
	users := NewBunUserRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, newUser("E001", "alice@example.com"), []string{"Employee"}))

	err := users.Create(ctx, newUser("E002", "alice@example.com"), nil)
	assert.ErrorIs(t, err, ErrDuplicate)

	err = users.Create(ctx, newUser("E001", "bob@example.com"), nil)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestBunUserRepository_CreateUnknownRoleRollsBack(t *testing.T) {
	users := NewBunUserRepository(setupTestDB(t))
	ctx := context.Background()

	err := users.Create(ctx, newUser("E001", "alice@example.com"), []string{"Intern"})
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = users.GetByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound, "user insert must be rolled back")
}

func TestBunUserRepository_AssignRolesIsIdempotent(t *testing.T) {
	users := NewBunUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := newUser("E001", "alice@example.com")
	require.NoError(t, users.Create(ctx, user, []string{"Employee"}))
	require.NoError(t, users.AssignRoles(ctx, user.ID, []string{"Employee", "Admin"}))

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "Employee"}, got.RoleNames())

	require.NoError(t, users.UpdateLastLogin(ctx, user.ID))
	got, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)

	list, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBunDepartmentRepository(t *testing.T) {
	depts := NewBunDepartmentRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, depts.Create(ctx, &models.Department{Name: "Sales"}))
	require.NoError(t, depts.Create(ctx, &models.Department{Name: "Engineering"}))
	assert.ErrorIs(t, depts.Create(ctx, &models.Department{Name: "Sales"}), ErrDuplicate)

	list, err := depts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Engineering", list[0].Name)

	_, err = depts.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunRevokedTokenRepository(t *testing.T) {
	repo := NewBunRevokedTokenRepository(setupTestDB(t))
	ctx := context.Background()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	entry := &models.RevokedToken{JTI: "jti-1", Subject: "u1", Kind: models.TokenKindRefresh, Exp: time.Now().Add(time.Hour)}
	first, err := repo.Revoke(ctx, entry)
	require.NoError(t, err)
	assert.True(t, first)
	second, err := repo.Revoke(ctx, entry)
	require.NoError(t, err)
	assert.False(t, second, "revoking twice reports the existing entry")

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	old := &models.RevokedToken{JTI: "jti-old", Subject: "u1", Kind: models.TokenKindAccess, Exp: time.Now().Add(-48 * time.Hour)}
	_, err = repo.Revoke(ctx, old)
	require.NoError(t, err)

	n, err := repo.DeleteExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked, "unexpired entries survive cleanup")
}

type countingRevocations struct {
	RevokedTokenRepository
	lookups int
}

func (c *countingRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	c.lookups++
	return c.RevokedTokenRepository.IsRevoked(ctx, jti)
}

func TestCachedRevokedTokenRepository(t *testing.T) {
	base := &countingRevocations{RevokedTokenRepository: NewBunRevokedTokenRepository(setupTestDB(t))}
	cached, err := NewCachedRevokedTokenRepository(base, 16)
	require.NoError(t, err)
	ctx := context.Background()

	for range 2 {
		revoked, err := cached.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	}
	assert.Equal(t, 2, base.lookups, "negative answers are not cached")

	_, err = cached.Revoke(ctx, &models.RevokedToken{JTI: "jti-1", Subject: "u1", Kind: models.TokenKindAccess, Exp: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	revoked, err := cached.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 2, base.lookups, "revoked jti answered from cache")
}
