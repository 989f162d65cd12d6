package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

// fakeAPI accepts one access token and serves a PM + Employee profile.
func fakeAPI(t *testing.T, access string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, data any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		env := map[string]any{"status": sdk.StatusSuccess}
		if status >= 300 {
			env = map[string]any{"status": sdk.StatusError, "message": "unauthorized"}
		} else if data != nil {
			env["data"] = data
		}
		_ = json.NewEncoder(w).Encode(env)
	}
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+access {
			write(w, http.StatusUnauthorized, nil)
			return
		}
		write(w, http.StatusOK, sdk.User{
			ID:    "u-1",
			Email: "pm@example.com",
			Roles: []sdk.Role{{ID: "2", Name: sdk.RolePM}, {ID: "4", Name: sdk.RoleEmployee}},
		})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusUnauthorized, nil)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func quiet() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seed(t *testing.T, dir, access, role string) {
	t.Helper()
	creds, err := auth.NewFileStoreAt(dir)
	require.NoError(t, err)
	require.NoError(t, creds.SaveCredentials(sdk.Credentials{AccessToken: access, RefreshToken: "r"}))
	if role != "" {
		scopes, err := auth.NewScopeStoreAt(dir)
		require.NoError(t, err)
		require.NoError(t, scopes.Save(role))
	}
}

func newTestProvider(srv *httptest.Server, dir string) *Provider {
	return NewProvider(srv.URL, dir, sdk.LandingRoute, WithHTTPClient(srv.Client()), WithLogger(quiet()))
}

func TestProviderRestoresRememberedRole(t *testing.T) {
	access := signedToken(t, "u-1")
	srv := fakeAPI(t, access)

	tests := []struct {
		name   string
		saved  string
		active string
	}{
		{"no remembered role uses priority", "", sdk.RolePM},
		{"remembered role restored", sdk.RoleEmployee, sdk.RoleEmployee},
		{"role no longer held falls back", sdk.RoleAdmin, sdk.RolePM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			seed(t, dir, access, tt.saved)

			session, err := newTestProvider(srv, dir).RequireSession(context.Background())
			require.NoError(t, err)
			require.NotNil(t, session.Scope())
			assert.Equal(t, tt.active, session.Scope().Active().Name)
		})
	}
}

func TestProviderWithoutCredentials(t *testing.T) {
	srv := fakeAPI(t, signedToken(t, "u-1"))
	p := newTestProvider(srv, t.TempDir())

	session, err := p.Session(context.Background())
	require.NoError(t, err)
	assert.True(t, session.IsResolved())
	assert.Nil(t, session.User())

	_, err = p.RequireSession(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestProviderRejectedTokenIsNotLoggedIn(t *testing.T) {
	srv := fakeAPI(t, signedToken(t, "u-1"))
	dir := t.TempDir()
	seed(t, dir, signedToken(t, "someone-else"), sdk.RoleEmployee)

	_, err := newTestProvider(srv, dir).RequireSession(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = os.Stat(filepath.Join(dir, "credentials.json"))
	assert.ErrorIs(t, err, os.ErrNotExist, "failed refresh clears stored tokens")
	_, err = os.Stat(filepath.Join(dir, "scope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist, "and the remembered role")
}

func TestProviderSaveScopeAndLogout(t *testing.T) {
	access := signedToken(t, "u-1")
	srv := fakeAPI(t, access)
	dir := t.TempDir()
	seed(t, dir, access, "")

	p := newTestProvider(srv, dir)
	session, err := p.RequireSession(context.Background())
	require.NoError(t, err)

	require.True(t, session.SwitchRole(sdk.RoleEmployee))
	assert.Equal(t, "/employee/dashboard", p.Navigator().CurrentRoute())
	require.NoError(t, p.SaveScope(session))

	scopes, err := auth.NewScopeStoreAt(dir)
	require.NoError(t, err)
	role, err := scopes.Load()
	require.NoError(t, err)
	assert.Equal(t, sdk.RoleEmployee, role)

	require.NoError(t, session.Logout(context.Background()))
	role, err = scopes.Load()
	require.NoError(t, err)
	assert.Empty(t, role)
	assert.Equal(t, sdk.LoginRoute, p.Navigator().CurrentRoute())

	creds, err := auth.NewFileStoreAt(dir)
	require.NoError(t, err)
	_, err = creds.LoadCredentials()
	assert.ErrorIs(t, err, sdk.ErrNoCredentials)
}
