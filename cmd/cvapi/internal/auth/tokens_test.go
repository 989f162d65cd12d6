package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/config"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func TestIssueAndParseAccess(t *testing.T) {
	issuer := testIssuer()
	id := Identity{UserID: "u-1", Email: "a@example.com", Roles: []string{RolePM, RoleEmployee}}

	issued, err := issuer.IssueAccess(id)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 2*time.Second)

	claims, err := issuer.ParseAccess(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, []string{RolePM, RoleEmployee}, claims.Roles)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, issued.ExpiresAt, claims.Expiry())
}

func TestRefreshTokensCarryNoRoles(t *testing.T) {
	issuer := testIssuer()
	issued, err := issuer.IssueRefresh(Identity{UserID: "u-1", Roles: []string{RoleAdmin}})
	require.NoError(t, err)

	claims, err := issuer.ParseRefresh(issued.Token)
	require.NoError(t, err)
	assert.Empty(t, claims.Roles)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	issuer := testIssuer()
	access, err := issuer.IssueAccess(Identity{UserID: "u-1"})
	require.NoError(t, err)
	refresh, err := issuer.IssueRefresh(Identity{UserID: "u-1"})
	require.NoError(t, err)

	_, err = issuer.ParseRefresh(access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.ParseAccess(refresh.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpiredToken(t *testing.T) {
	issuer := testIssuer()
	past := issuer.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })

	issued, err := past.IssueAccess(Identity{UserID: "u-1"})
	require.NoError(t, err)

	_, err = issuer.ParseAccess(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = past.ParseAccess(issued.Token)
	assert.NoError(t, err, "valid on the issuing clock")
}

func TestParseRejectsForeignTokens(t *testing.T) {
	issuer := testIssuer()

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"garbage", func(*testing.T) string { return "not.a.jwt" }},
		{"wrong secret", func(t *testing.T) string {
			other := NewTokenIssuer(config.JWTConfig{Secret: "other", AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour})
			issued, err := other.IssueAccess(Identity{UserID: "u-1"})
			require.NoError(t, err)
			return issued.Token
		}},
		{"alg none", func(t *testing.T) string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
				"user_id": "u-1", "jti": "x", "typ": TokenTypeAccess, "exp": time.Now().Add(time.Hour).Unix(),
			}).SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return tok
		}},
		{"no exp", func(t *testing.T) string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"user_id": "u-1", "jti": "x", "typ": TokenTypeAccess,
			}).SignedString([]byte("test-secret"))
			require.NoError(t, err)
			return tok
		}},
		{"no jti", func(t *testing.T) string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"user_id": "u-1", "typ": TokenTypeAccess, "exp": time.Now().Add(time.Hour).Unix(),
			}).SignedString([]byte("test-secret"))
			require.NoError(t, err)
			return tok
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.ParseAccess(tt.token(t))
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestDecodeClaimsNarrowsNumbers(t *testing.T) {
	claims, err := DecodeClaims(map[string]any{
		"user_id": "u-1",
		"roles":   []any{"PM"},
		"exp":     float64(1700000000),
		"iat":     float64(1690000000),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1700000000, claims.ExpiresAt)
	assert.Equal(t, []string{"PM"}, claims.Roles)
}

func TestPasswordHashing(t *testing.T) {
	BcryptCost = 4
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
	assert.False(t, CheckPassword("not-a-hash", "secret1"))
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, "role:BUL/Lead", RoleID(RoleBUL))
	id, err := ExtractUserID(UserID("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	_, err = ExtractUserID("role:Admin")
	assert.Error(t, err)
}
