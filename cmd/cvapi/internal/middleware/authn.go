package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/envelope"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/repository"
)

// AuthnDependencies bundles collaborators required by the authentication middleware.
type AuthnDependencies struct {
	Tokens      *auth.TokenIssuer
	Users       repository.UserRepository
	RevokedJTIs repository.RevokedTokenRepository
	Logger      logrus.FieldLogger
	// Optional lets requests without an Authorization header through
	// anonymously. A header that is present must still be valid.
	Optional bool
}

// NewAuthnMiddleware verifies the bearer access token, rejects revoked tokens
// and stores the principal, with roles freshly loaded from the database, on
// the request context. Every failure is a 401 so clients know to refresh.
func NewAuthnMiddleware(deps AuthnDependencies) (func(http.Handler) http.Handler, error) {
	if deps.Tokens == nil {
		return nil, errors.New("authn middleware requires token issuer")
	}
	if deps.Users == nil {
		return nil, errors.New("authn middleware requires user repository")
	}
	if deps.RevokedJTIs == nil {
		return nil, errors.New("authn middleware requires revoked token repository")
	}
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok && deps.Optional && r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				envelope.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := deps.Tokens.ParseAccess(token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "token expired"
				}
				log.WithError(err).Debug("rejecting access token")
				envelope.Error(w, http.StatusUnauthorized, msg)
				return
			}

			revoked, err := deps.RevokedJTIs.IsRevoked(ctx, claims.ID)
			if err != nil {
				log.WithError(err).Error("check token revocation")
				envelope.Error(w, http.StatusInternalServerError, "authentication error")
				return
			}
			if revoked {
				envelope.Error(w, http.StatusUnauthorized, "token has been revoked")
				return
			}

			user, err := deps.Users.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					envelope.Error(w, http.StatusUnauthorized, "account no longer exists")
					return
				}
				log.WithError(err).Error("resolve principal")
				envelope.Error(w, http.StatusInternalServerError, "authentication error")
				return
			}

			principal := auth.AuthenticatedPrincipal{
				PrincipalID: auth.UserID(user.ID),
				UserID:      user.ID,
				Email:       user.Email,
				Roles:       user.RoleNames(),
				TokenID:     claims.ID,
				TokenExpiry: claims.ExpiresAt,
			}
			next.ServeHTTP(w, r.WithContext(auth.SetUserContext(ctx, principal)))
		})
	}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
