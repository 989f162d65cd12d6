package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/config"
)

// Token types carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and wrong token types.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for well-formed tokens past their exp.
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the decoded payload of an access or refresh token.
type Claims struct {
	Subject   string   `mapstructure:"sub"`
	UserID    string   `mapstructure:"user_id"`
	Email     string   `mapstructure:"email"`
	Roles     []string `mapstructure:"roles"`
	Type      string   `mapstructure:"typ"`
	ID        string   `mapstructure:"jti"`
	IssuedAt  int64    `mapstructure:"iat"`
	ExpiresAt int64    `mapstructure:"exp"`
}

// Expiry returns exp as a time.
func (c *Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// IssuedToken is a signed token plus the metadata needed to revoke it.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Identity is what gets embedded in a token.
type Identity struct {
	UserID string
	Email  string
	Roles  []string
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens use
// different keys so one can never be replayed as the other.
type TokenIssuer struct {
	cfg config.JWTConfig
	now func() time.Time
}

// NewTokenIssuer builds an issuer from the JWT configuration.
func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

// IssueAccess signs an access token for id.
func (i *TokenIssuer) IssueAccess(id Identity) (IssuedToken, error) {
	return i.issue(id, TokenTypeAccess, i.cfg.AccessTokenTTL, i.cfg.Secret)
}

// IssueRefresh signs a refresh token for id. Refresh tokens carry no roles;
// roles are reloaded from the database on every refresh.
func (i *TokenIssuer) IssueRefresh(id Identity) (IssuedToken, error) {
	id.Roles = nil
	return i.issue(id, TokenTypeRefresh, i.cfg.RefreshTokenTTL, i.cfg.RefreshSecret())
}

// ParseAccess verifies an access token and decodes its claims.
func (i *TokenIssuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, TokenTypeAccess, i.cfg.Secret)
}

// ParseRefresh verifies a refresh token and decodes its claims.
func (i *TokenIssuer) ParseRefresh(token string) (*Claims, error) {
	return i.parse(token, TokenTypeRefresh, i.cfg.RefreshSecret())
}

func (i *TokenIssuer) issue(id Identity, typ string, ttl time.Duration, secret string) (IssuedToken, error) {
	now := i.now()
	jti := uuid.NewString()
	exp := now.Add(ttl)

	claims := jwt.MapClaims{
		"sub":     id.UserID,
		"user_id": id.UserID,
		"email":   id.Email,
		"typ":     typ,
		"jti":     jti,
		"iat":     now.Unix(),
		"exp":     exp.Unix(),
	}
	if len(id.Roles) > 0 {
		claims["roles"] = id.Roles
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return IssuedToken{Token: signed, ID: jti, ExpiresAt: time.Unix(exp.Unix(), 0)}, nil
}

func (i *TokenIssuer) parse(token, typ, secret string) (*Claims, error) {
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type %T", ErrInvalidToken, parsed.Claims)
	}

	claims, err := DecodeClaims(mapClaims)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, typ, claims.Type)
	}
	if claims.ID == "" || claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing jti or user_id", ErrInvalidToken)
	}
	return claims, nil
}

// DecodeClaims converts a verified claims map into Claims. Numeric dates
// arrive as float64 from encoding/json and are narrowed to unix seconds.
func DecodeClaims(raw map[string]any) (*Claims, error) {
	var claims Claims
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &claims,
	})
	if err != nil {
		return nil, fmt.Errorf("build claims decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}
