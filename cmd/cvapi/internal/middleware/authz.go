package middleware

import (
	"errors"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/sirupsen/logrus"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/envelope"
)

// AuthzDependencies provides the collaborators needed for authorization decisions.
type AuthzDependencies struct {
	Enforcer casbin.IEnforcer
	Logger   logrus.FieldLogger
}

// NewAuthzMiddleware enforces Casbin role policies on the request path and
// method. It must run after the authn middleware. A principal whose roles
// grant nothing gets 403; the session stays valid.
func NewAuthzMiddleware(deps AuthzDependencies) (func(http.Handler) http.Handler, error) {
	if deps.Enforcer == nil {
		return nil, errors.New("authz middleware requires casbin enforcer")
	}
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.GetUserFromContext(r.Context())
			if !ok || principal.PrincipalID == "" {
				envelope.Error(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			allowed, err := auth.Authorize(deps.Enforcer, principal.Roles, r.URL.Path, r.Method)
			if err != nil {
				log.WithError(err).Error("authorization error")
				envelope.Error(w, http.StatusInternalServerError, "authorization error")
				return
			}
			if !allowed {
				log.WithFields(logrus.Fields{
					"principal": principal.PrincipalID,
					"roles":     principal.Roles,
					"path":      r.URL.Path,
				}).Debug("access denied")
				envelope.Error(w, http.StatusForbidden, "access denied: insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
