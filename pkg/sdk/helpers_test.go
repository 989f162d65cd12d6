package sdk_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

const testSecret = "test-secret"

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "user-1",
		"jti": uuid.NewString(),
		"exp": exp.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func freshToken(t *testing.T) string {
	return signToken(t, time.Now().Add(time.Hour))
}

func staleToken(t *testing.T) string {
	return signToken(t, time.Now().Add(-time.Hour))
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeAPI serves the auth endpoints with an in-memory token table. Refresh
// tokens are single use.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	user         sdk.User
	loginAccess  string
	loginRefresh string

	mu          sync.Mutex
	accepted    map[string]bool
	rotations   map[string]sdk.TokenPair
	authHeaders []string
	echoBodies  []string

	refreshCalls atomic.Int32
	profileCalls atomic.Int32
	logoutCalls  atomic.Int32

	// distrustRotated makes refreshed access tokens unacceptable.
	distrustRotated bool

	refreshStarted chan struct{}
	startedOnce    sync.Once
	releaseRefresh chan struct{}

	profileStarted     chan struct{}
	profileStartedOnce sync.Once
	releaseProfile     chan struct{}
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		t: t,
		user: sdk.User{
			ID:           "user-1",
			EmployeeCode: "E001",
			FullName:     "Alice Nguyen",
			Email:        "a@b.com",
			Roles:        []sdk.Role{{ID: "1", Name: sdk.RoleAdmin}, {ID: "2", Name: sdk.RolePM}},
		},
		loginAccess:  freshToken(t),
		loginRefresh: freshToken(t),
		accepted:     make(map[string]bool),
		rotations:    make(map[string]sdk.TokenPair),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", api.handleLogin)
	mux.HandleFunc("POST /auth/refresh", api.handleRefresh)
	mux.HandleFunc("POST /auth/logout", api.handleLogout)
	mux.HandleFunc("GET /profile", api.handleProfile)
	mux.HandleFunc("POST /echo", api.handleEcho)

	api.srv = httptest.NewServer(mux)
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) URL() string { return a.srv.URL }

func (a *fakeAPI) accept(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accepted[token] = true
}

func (a *fakeAPI) reject(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.accepted, token)
}

// willRotate makes refreshToken exchangeable once for pair.
func (a *fakeAPI) willRotate(refreshToken string, pair sdk.TokenPair) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rotations[refreshToken] = pair
}

// gateRefresh holds refresh requests until release is called. started is
// closed when the first one arrives.
func (a *fakeAPI) gateRefresh() (started <-chan struct{}, release func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshStarted = make(chan struct{})
	a.releaseRefresh = make(chan struct{})
	ch := a.releaseRefresh
	var once sync.Once
	release = func() { once.Do(func() { close(ch) }) }
	a.t.Cleanup(release)
	return a.refreshStarted, release
}

// gateProfile holds profile requests until release is called. started is
// closed when the first one arrives.
func (a *fakeAPI) gateProfile() (started <-chan struct{}, release func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.profileStarted = make(chan struct{})
	a.releaseProfile = make(chan struct{})
	ch := a.releaseProfile
	var once sync.Once
	release = func() { once.Do(func() { close(ch) }) }
	a.t.Cleanup(release)
	return a.profileStarted, release
}

func (a *fakeAPI) distrustRefreshed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.distrustRotated = true
}

func (a *fakeAPI) setRoles(roles []sdk.Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.Roles = roles
}

func (a *fakeAPI) currentUser() sdk.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

func (a *fakeAPI) seenAuthHeaders() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.authHeaders...)
}

func (a *fakeAPI) seenEchoBodies() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.echoBodies...)
}

func (a *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req sdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid login data")
		return
	}
	if req.Email != "a@b.com" || req.Password != "pw" {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	a.accept(a.loginAccess)
	writeData(w, http.StatusOK, sdk.LoginResult{User: a.currentUser(), Token: a.loginAccess, RefreshToken: a.loginRefresh})
}

func (a *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a.refreshCalls.Add(1)
	a.mu.Lock()
	started, release := a.refreshStarted, a.releaseRefresh
	a.mu.Unlock()
	if started != nil {
		a.startedOnce.Do(func() { close(started) })
	}
	if release != nil {
		<-release
	}

	var req sdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	a.mu.Lock()
	pair, ok := a.rotations[req.RefreshToken]
	delete(a.rotations, req.RefreshToken)
	if ok && !a.distrustRotated {
		a.accepted[pair.Token] = true
	}
	a.mu.Unlock()

	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	writeData(w, http.StatusOK, pair)
}

func (a *fakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.logoutCalls.Add(1)
	a.reject(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	writeJSON(w, http.StatusOK, sdk.Envelope{Status: sdk.StatusSuccess, Message: "Successfully logged out"})
}

func (a *fakeAPI) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authHeaders = append(a.authHeaders, header)
	return header != "" && a.accepted[strings.TrimPrefix(header, "Bearer ")]
}

func (a *fakeAPI) handleProfile(w http.ResponseWriter, r *http.Request) {
	a.profileCalls.Add(1)
	// Check the token before waiting so a logout during the wait does not
	// change the answer.
	ok := a.authorized(r)

	a.mu.Lock()
	started, release := a.profileStarted, a.releaseProfile
	a.mu.Unlock()
	if started != nil {
		a.profileStartedOnce.Do(func() { close(started) })
	}
	if release != nil {
		<-release
	}

	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeData(w, http.StatusOK, a.currentUser())
}

func (a *fakeAPI) handleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a.mu.Lock()
	a.echoBodies = append(a.echoBodies, string(body))
	a.mu.Unlock()

	if !a.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"body": string(body)})
}

func writeData(w http.ResponseWriter, status int, data any) {
	raw, _ := json.Marshal(data)
	writeJSON(w, status, sdk.Envelope{Status: sdk.StatusSuccess, Data: raw})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, sdk.Envelope{Status: sdk.StatusError, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// newTestClient returns a client against api holding the given pair.
func newTestClient(t *testing.T, api *fakeAPI, nav sdk.Navigator, access, refresh string) *sdk.Client {
	t.Helper()
	store, err := sdk.NewTokenStore(nil)
	require.NoError(t, err)
	if access != "" || refresh != "" {
		require.NoError(t, store.Set(access, refresh))
	}
	opts := []sdk.ClientOption{sdk.WithLogger(quietLogger())}
	if nav != nil {
		opts = append(opts, sdk.WithNavigator(nav))
	}
	return sdk.NewClient(api.URL(), store, opts...)
}
