package repository

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/uptrace/bun"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
)

// BunRevokedTokenRepository implements RevokedTokenRepository using Bun ORM
type BunRevokedTokenRepository struct {
	db *bun.DB
}

// NewBunRevokedTokenRepository creates a new Bun-based revoked token repository
func NewBunRevokedTokenRepository(db *bun.DB) *BunRevokedTokenRepository {
	return &BunRevokedTokenRepository{db: db}
}

// Revoke adds a jti to the denylist
func (r *BunRevokedTokenRepository) Revoke(ctx context.Context, token *models.RevokedToken) (bool, error) {
	if token.RevokedAt.IsZero() {
		token.RevokedAt = time.Now()
	}
	res, err := r.db.NewInsert().
		Model(token).
		On("CONFLICT (jti) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return n > 0, nil
}

// IsRevoked checks if a jti exists in the denylist
func (r *BunRevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.RevokedToken)(nil)).
		Where("jti = ?", jti).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

// DeleteExpired removes entries where exp < now - grace
func (r *BunRevokedTokenRepository) DeleteExpired(ctx context.Context, grace time.Duration) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.RevokedToken)(nil)).
		Where("exp < ?", time.Now().Add(-grace)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CachedRevokedTokenRepository remembers jtis already seen as revoked. A
// revoked token never becomes valid again, so only positive answers are
// cached; every miss goes to the underlying repository.
type CachedRevokedTokenRepository struct {
	RevokedTokenRepository
	revoked *lru.Cache[string, struct{}]
}

// NewCachedRevokedTokenRepository wraps next with an LRU of size entries.
func NewCachedRevokedTokenRepository(next RevokedTokenRepository, size int) (*CachedRevokedTokenRepository, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("create revocation cache: %w", err)
	}
	return &CachedRevokedTokenRepository{RevokedTokenRepository: next, revoked: cache}, nil
}

// Revoke records the jti and caches it.
func (r *CachedRevokedTokenRepository) Revoke(ctx context.Context, token *models.RevokedToken) (bool, error) {
	revoked, err := r.RevokedTokenRepository.Revoke(ctx, token)
	if err != nil {
		return false, err
	}
	r.revoked.Add(token.JTI, struct{}{})
	return revoked, nil
}

// IsRevoked answers from the cache when possible.
func (r *CachedRevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.revoked.Contains(jti) {
		return true, nil
	}
	revoked, err := r.RevokedTokenRepository.IsRevoked(ctx, jti)
	if err == nil && revoked {
		r.revoked.Add(jti, struct{}{})
	}
	return revoked, err
}
