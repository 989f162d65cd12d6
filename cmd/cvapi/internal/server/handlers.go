package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/envelope"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/repository"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

// dashboardScopes maps URL scopes to roles, highest priority first.
var dashboardScopes = []struct{ Scope, Role string }{
	{"admin", auth.RoleAdmin},
	{"pm", auth.RolePM},
	{"bulorlead", auth.RoleBUL},
	{"employee", auth.RoleEmployee},
}

func dashboardLink(scope, role string) sdk.DashboardLink {
	route, _ := sdk.DefaultRouteTable().DashboardFor(role)
	return sdk.DashboardLink{Scope: scope, Role: role, Route: route}
}

// HandleProfile returns the authenticated user with roles and department.
func HandleProfile(users repository.UserRepository, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			envelope.Error(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		user, err := users.GetByID(r.Context(), principal.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				envelope.Error(w, http.StatusUnauthorized, "account no longer exists")
				return
			}
			log.WithError(err).Error("load profile")
			envelope.Error(w, http.StatusInternalServerError, "failed to load profile")
			return
		}
		envelope.Data(w, http.StatusOK, toSDKUser(user))
	}
}

// HandleListRoles lists every seeded role.
func HandleListRoles(roles repository.RoleRepository, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := roles.List(r.Context())
		if err != nil {
			log.WithError(err).Error("list roles")
			envelope.Error(w, http.StatusInternalServerError, "failed to list roles")
			return
		}
		envelope.Data(w, http.StatusOK, toSDKRoles(list))
	}
}

// HandleListDepartments lists departments for registration forms.
func HandleListDepartments(depts repository.DepartmentRepository, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := depts.List(r.Context())
		if err != nil {
			log.WithError(err).Error("list departments")
			envelope.Error(w, http.StatusInternalServerError, "failed to list departments")
			return
		}
		envelope.Data(w, http.StatusOK, toSDKDepartments(list))
	}
}

// HandleCreateDepartment adds a department. Admin only, enforced by authz.
func HandleCreateDepartment(depts repository.DepartmentRepository, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sdk.Department
		if err := envelope.Decode(r, &req); err != nil {
			envelope.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			envelope.Error(w, http.StatusBadRequest, "name is required")
			return
		}

		dept := &models.Department{Name: req.Name}
		if err := depts.Create(r.Context(), dept); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				envelope.Error(w, http.StatusConflict, "department already exists")
				return
			}
			log.WithError(err).Error("create department")
			envelope.Error(w, http.StatusInternalServerError, "failed to create department")
			return
		}
		envelope.Data(w, http.StatusCreated, sdk.Department{ID: dept.ID, Name: dept.Name})
	}
}

// HandleListUsers lists every account. Admin only, enforced by authz.
func HandleListUsers(users repository.UserRepository, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context())
		if err != nil {
			log.WithError(err).Error("list users")
			envelope.Error(w, http.StatusInternalServerError, "failed to list users")
			return
		}
		out := make([]sdk.User, 0, len(list))
		for i := range list {
			out = append(out, toSDKUser(&list[i]))
		}
		envelope.Data(w, http.StatusOK, out)
	}
}

// HandleDashboards lists the dashboards the caller's roles open, in role
// priority order. Multi-role clients render this as the chooser.
func HandleDashboards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			envelope.Error(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		links := make([]sdk.DashboardLink, 0, len(dashboardScopes))
		for _, s := range dashboardScopes {
			if principal.HasRole(s.Role) {
				links = append(links, dashboardLink(s.Scope, s.Role))
			}
		}
		envelope.Data(w, http.StatusOK, links)
	}
}

// HandleDashboard serves one role dashboard. Whether the caller may see it
// is decided by authz before this runs.
func HandleDashboard(users repository.UserRepository, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := chi.URLParam(r, "scope")
		idx := slices.IndexFunc(dashboardScopes, func(s struct{ Scope, Role string }) bool {
			return s.Scope == scope
		})
		if idx < 0 {
			envelope.Error(w, http.StatusNotFound, "unknown dashboard")
			return
		}

		principal, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			envelope.Error(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		user, err := users.GetByID(r.Context(), principal.UserID)
		if err != nil {
			log.WithError(err).Error("load dashboard user")
			envelope.Error(w, http.StatusInternalServerError, "failed to load dashboard")
			return
		}

		s := dashboardScopes[idx]
		envelope.Data(w, http.StatusOK, sdk.Dashboard{
			DashboardLink: dashboardLink(s.Scope, s.Role),
			User:          toSDKUser(user),
		})
	}
}

// Pinger is satisfied by *bun.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler reports 200 OK while db answers a ping.
func NewHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			envelope.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		envelope.Message(w, http.StatusOK, "OK")
	}
}
