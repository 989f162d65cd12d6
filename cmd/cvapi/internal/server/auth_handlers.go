package server

import (
	"errors"
	"io"
	"net/http"
	"net/mail"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/envelope"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/repository"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/telemetry"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

// AuthDeps bundles what the /auth handlers need.
type AuthDeps struct {
	Users       repository.UserRepository
	Departments repository.DepartmentRepository
	Revoked     repository.RevokedTokenRepository
	Tokens      *auth.TokenIssuer
	// RotateRefresh makes /auth/refresh revoke the presented refresh token
	// and return a new one.
	RotateRefresh bool
	Logger        logrus.FieldLogger
}

// HandleRegister creates an account. Every account gets the Employee role;
// further roles may only be requested by an authenticated Admin.
func HandleRegister(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sdk.RegisterInput
		if err := envelope.Decode(r, &req); err != nil {
			envelope.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.EmployeeCode = strings.TrimSpace(req.EmployeeCode)
		req.FullName = strings.TrimSpace(req.FullName)
		req.Email = normalizeEmail(req.Email)
		req.DepartmentID = strings.TrimSpace(req.DepartmentID)

		if req.EmployeeCode == "" || req.FullName == "" || req.Email == "" || req.Password == "" {
			envelope.Error(w, http.StatusBadRequest, "employee_code, full_name, email and password are required")
			return
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			envelope.Error(w, http.StatusBadRequest, "invalid email address")
			return
		}

		roles, extra := registrationRoles(req.RoleNames)
		if extra {
			principal, ok := auth.GetUserFromContext(ctx)
			if !ok || !principal.HasRole(auth.RoleAdmin) {
				envelope.Error(w, http.StatusForbidden, "only administrators can assign additional roles")
				return
			}
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) {
				envelope.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			deps.Logger.WithError(err).Error("hash password")
			envelope.Error(w, http.StatusInternalServerError, "failed to register user")
			return
		}

		user := &models.User{
			EmployeeCode: req.EmployeeCode,
			FullName:     req.FullName,
			Email:        req.Email,
			PasswordHash: hash,
		}
		if req.DepartmentID != "" {
			if _, err := deps.Departments.GetByID(ctx, req.DepartmentID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					envelope.Error(w, http.StatusBadRequest, "unknown department")
					return
				}
				deps.Logger.WithError(err).Error("look up department")
				envelope.Error(w, http.StatusInternalServerError, "failed to register user")
				return
			}
			user.DepartmentID = &req.DepartmentID
		}

		if err := deps.Users.Create(ctx, user, roles); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				envelope.Error(w, http.StatusConflict, "email or employee code already registered")
			case errors.Is(err, repository.ErrUnknownRole):
				envelope.Error(w, http.StatusBadRequest, err.Error())
			default:
				deps.Logger.WithError(err).Error("create user")
				envelope.Error(w, http.StatusInternalServerError, "failed to register user")
			}
			return
		}

		deps.Logger.WithFields(logrus.Fields{"user_id": user.ID, "roles": roles}).Info("user registered")
		envelope.Message(w, http.StatusCreated, "user registered successfully")
	}
}

// HandleLogin exchanges email and password for an access/refresh token pair.
func HandleLogin(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sdk.LoginRequest
		if err := envelope.Decode(r, &req); err != nil {
			envelope.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		email := normalizeEmail(req.Email)
		if email == "" || req.Password == "" {
			envelope.Error(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := deps.Users.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			deps.Logger.WithError(err).Error("look up user")
			envelope.Error(w, http.StatusInternalServerError, "login failed")
			return
		}
		if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
			envelope.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		identity := auth.Identity{UserID: user.ID, Email: user.Email, Roles: user.RoleNames()}
		access, err := deps.Tokens.IssueAccess(identity)
		if err != nil {
			deps.Logger.WithError(err).Error("issue access token")
			envelope.Error(w, http.StatusInternalServerError, "login failed")
			return
		}
		refresh, err := deps.Tokens.IssueRefresh(identity)
		if err != nil {
			deps.Logger.WithError(err).Error("issue refresh token")
			envelope.Error(w, http.StatusInternalServerError, "login failed")
			return
		}

		if err := deps.Users.UpdateLastLogin(ctx, user.ID); err != nil {
			deps.Logger.WithError(err).Warn("update last login")
		}

		telemetry.AddEvent(ctx, "login.succeeded",
			attribute.String(telemetry.AttrUserID, user.ID),
			attribute.StringSlice(telemetry.AttrUserRoles, identity.Roles),
		)
		deps.Logger.WithField("user_id", user.ID).Info("user logged in")
		envelope.Data(w, http.StatusOK, sdk.LoginResult{
			User:         toSDKUser(user),
			Token:        access.Token,
			RefreshToken: refresh.Token,
		})
	}
}

// HandleRefresh trades a refresh token for a new access token. With rotation
// enabled the presented refresh token is revoked, so replaying it fails.
func HandleRefresh(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sdk.RefreshRequest
		if err := envelope.Decode(r, &req); err != nil {
			envelope.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.RefreshToken) == "" {
			envelope.Error(w, http.StatusBadRequest, "refresh_token is required")
			return
		}

		claims, err := deps.Tokens.ParseRefresh(req.RefreshToken)
		if err != nil {
			deps.Logger.WithError(err).Debug("rejecting refresh token")
			envelope.Error(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}

		revoked, err := deps.Revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			deps.Logger.WithError(err).Error("check refresh token revocation")
			envelope.Error(w, http.StatusInternalServerError, "refresh failed")
			return
		}
		if revoked {
			envelope.Error(w, http.StatusUnauthorized, "refresh token has been revoked")
			return
		}

		user, err := deps.Users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				envelope.Error(w, http.StatusUnauthorized, "account no longer exists")
				return
			}
			deps.Logger.WithError(err).Error("look up user")
			envelope.Error(w, http.StatusInternalServerError, "refresh failed")
			return
		}

		identity := auth.Identity{UserID: user.ID, Email: user.Email, Roles: user.RoleNames()}
		access, err := deps.Tokens.IssueAccess(identity)
		if err != nil {
			deps.Logger.WithError(err).Error("issue access token")
			envelope.Error(w, http.StatusInternalServerError, "refresh failed")
			return
		}
		pair := sdk.TokenPair{Token: access.Token}

		if deps.RotateRefresh {
			first, err := deps.Revoked.Revoke(ctx, &models.RevokedToken{
				JTI:     claims.ID,
				Subject: claims.UserID,
				Kind:    models.TokenKindRefresh,
				Exp:     claims.Expiry(),
			})
			if err != nil {
				deps.Logger.WithError(err).Error("revoke refresh token")
				envelope.Error(w, http.StatusInternalServerError, "refresh failed")
				return
			}
			if !first {
				// A concurrent request redeemed the same token first.
				telemetry.AddEvent(ctx, "refresh.reuse_detected",
					attribute.String(telemetry.AttrUserID, user.ID),
					attribute.String(telemetry.AttrTokenKind, models.TokenKindRefresh),
				)
				deps.Logger.WithField("user_id", user.ID).Warn("refresh token reuse detected")
				envelope.Error(w, http.StatusUnauthorized, "refresh token has been revoked")
				return
			}

			refresh, err := deps.Tokens.IssueRefresh(identity)
			if err != nil {
				deps.Logger.WithError(err).Error("issue refresh token")
				envelope.Error(w, http.StatusInternalServerError, "refresh failed")
				return
			}
			pair.RefreshToken = refresh.Token
		}

		envelope.Data(w, http.StatusOK, pair)
	}
}

// HandleLogout revokes the presented access token and, when the body carries
// the caller's own refresh token, that one too. Must run behind authn.
func HandleLogout(deps AuthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		principal, ok := auth.GetUserFromContext(ctx)
		if !ok {
			envelope.Error(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		var req sdk.RefreshRequest
		if err := envelope.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
			envelope.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if _, err := deps.Revoked.Revoke(ctx, &models.RevokedToken{
			JTI:     principal.TokenID,
			Subject: principal.UserID,
			Kind:    models.TokenKindAccess,
			Exp:     principal.ExpiresAt(),
		}); err != nil {
			deps.Logger.WithError(err).Error("revoke access token")
			envelope.Error(w, http.StatusInternalServerError, "logout failed")
			return
		}

		if req.RefreshToken != "" {
			claims, err := deps.Tokens.ParseRefresh(req.RefreshToken)
			switch {
			case err != nil:
				deps.Logger.WithError(err).Debug("ignoring refresh token on logout")
			case claims.UserID != principal.UserID:
				deps.Logger.WithField("user_id", principal.UserID).Warn("refresh token on logout belongs to another user")
			default:
				if _, err := deps.Revoked.Revoke(ctx, &models.RevokedToken{
					JTI:     claims.ID,
					Subject: claims.UserID,
					Kind:    models.TokenKindRefresh,
					Exp:     claims.Expiry(),
				}); err != nil {
					deps.Logger.WithError(err).Error("revoke refresh token")
					envelope.Error(w, http.StatusInternalServerError, "logout failed")
					return
				}
			}
		}

		deps.Logger.WithField("user_id", principal.UserID).Info("user logged out")
		envelope.Message(w, http.StatusOK, "logged out successfully")
	}
}

// registrationRoles returns Employee plus any requested roles, and whether
// anything beyond Employee was requested.
func registrationRoles(requested []string) ([]string, bool) {
	roles := []string{auth.RoleEmployee}
	extra := false
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(roles, name) {
			continue
		}
		roles = append(roles, name)
		extra = true
	}
	return roles, extra
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
