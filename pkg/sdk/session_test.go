package sdk_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

func TestSessionResolveWithoutTokens(t *testing.T) {
	api := newFakeAPI(t)
	nav := sdk.NewMemoryNavigator("/admin")
	session := sdk.NewSession(newTestClient(t, api, nav, "", ""))

	assert.False(t, session.IsResolved())
	require.NoError(t, session.Resolve(context.Background()))

	assert.True(t, session.IsResolved())
	assert.Nil(t, session.User())
	assert.Nil(t, session.Scope())
	assert.Zero(t, api.profileCalls.Load())
	assert.Empty(t, nav.History())
}

func TestSessionResolveLoadsUserAndScope(t *testing.T) {
	api := newFakeAPI(t)
	t1 := freshToken(t)
	api.accept(t1)
	session := sdk.NewSession(newTestClient(t, api, nil, t1, freshToken(t)))

	require.NoError(t, session.Resolve(context.Background()))
	select {
	case <-session.Resolved():
	default:
		t.Fatal("resolved channel not closed")
	}

	require.NotNil(t, session.User())
	assert.Equal(t, "user-1", session.User().ID)
	require.NotNil(t, session.Scope())
	assert.Equal(t, sdk.RoleAdmin, session.Scope().Active().Name)
}

func TestSessionResolveClearsMalformedToken(t *testing.T) {
	api := newFakeAPI(t)
	client := newTestClient(t, api, nil, "not-a-jwt", freshToken(t))
	session := sdk.NewSession(client)

	require.NoError(t, session.Resolve(context.Background()))
	assert.Nil(t, session.User())
	assert.True(t, client.Store().Get().Empty())
	assert.Zero(t, api.profileCalls.Load())
}

func TestSessionResolveClearsExpiredTokenWithoutRefreshToken(t *testing.T) {
	api := newFakeAPI(t)
	client := newTestClient(t, api, nil, staleToken(t), "")
	session := sdk.NewSession(client)

	require.NoError(t, session.Resolve(context.Background()))
	assert.Nil(t, session.User())
	assert.True(t, client.Store().Get().Empty())
	assert.Zero(t, api.profileCalls.Load())
}

func TestSessionResolveRefreshFailureRedirects(t *testing.T) {
	api := newFakeAPI(t)
	nav := sdk.NewMemoryNavigator("/employee/dashboard")
	client := newTestClient(t, api, nav, staleToken(t), freshToken(t))
	session := sdk.NewSession(client)

	err := session.Resolve(context.Background())
	assert.ErrorIs(t, err, sdk.ErrRefreshFailed)
	assert.True(t, session.IsResolved())
	assert.Nil(t, session.User())
	assert.True(t, client.Store().Get().Empty())
	assert.Equal(t, []string{sdk.LoginRoute}, nav.History())
}

func TestSessionLoginSwitchLogout(t *testing.T) {
	api := newFakeAPI(t)
	nav := sdk.NewMemoryNavigator("/login")
	client := newTestClient(t, api, nav, "", "")
	session := sdk.NewSession(client)

	user, err := session.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.True(t, session.IsResolved())
	assert.Equal(t, sdk.RoleAdmin, session.Scope().Active().Name)

	assert.True(t, session.SwitchRole(sdk.RolePM))
	assert.False(t, session.SwitchRole(sdk.RoleBUL))
	assert.Equal(t, sdk.RolePM, session.Scope().Active().Name)
	assert.Equal(t, "/pm/dashboard", nav.CurrentRoute())

	require.NoError(t, session.Logout(context.Background()))
	assert.Nil(t, session.User())
	assert.Nil(t, session.Scope())
	assert.False(t, session.SwitchRole(sdk.RolePM))
	assert.True(t, client.Store().Get().Empty())
	assert.Equal(t, []string{"/pm/dashboard", sdk.LoginRoute}, nav.History())
}

func TestSessionDoesNotLeakScopeAcrossUsers(t *testing.T) {
	api := newFakeAPI(t)
	session := sdk.NewSession(newTestClient(t, api, nil, "", ""))

	_, err := session.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	require.True(t, session.SwitchRole(sdk.RolePM))
	first := session.Scope()

	require.NoError(t, session.Logout(context.Background()))

	api.setRoles([]sdk.Role{{ID: "4", Name: sdk.RoleEmployee}})
	_, err = session.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	assert.NotSame(t, first, session.Scope())
	assert.Equal(t, sdk.RoleEmployee, session.Scope().Active().Name)
}

func TestSessionDropsUserWhenTokensCleared(t *testing.T) {
	api := newFakeAPI(t)
	client := newTestClient(t, api, nil, "", "")
	session := sdk.NewSession(client)

	_, err := session.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, session.User())

	require.NoError(t, client.Store().Clear())
	assert.Nil(t, session.User())
	assert.Nil(t, session.Scope())
}

func TestSessionLogoutDuringResolveDropsUser(t *testing.T) {
	api := newFakeAPI(t)
	t1 := freshToken(t)
	api.accept(t1)
	nav := sdk.NewMemoryNavigator("/admin")
	client := newTestClient(t, api, nav, t1, freshToken(t))
	session := sdk.NewSession(client)
	guard := sdk.NewDashboardGuard(session)
	ctx := context.Background()

	started, release := api.gateProfile()
	done := make(chan error, 1)
	go func() { done <- session.Resolve(ctx) }()

	<-started
	require.NoError(t, session.Logout(ctx))
	release()

	err := <-done
	assert.ErrorIs(t, err, sdk.ErrSessionEnded)
	assert.True(t, session.IsResolved())
	assert.Nil(t, session.User())
	assert.Nil(t, session.Scope())
	assert.True(t, client.Store().Get().Empty())

	decision := guard.Evaluate("/admin")
	assert.Equal(t, sdk.GuardRedirecting, decision.State)
	assert.Equal(t, sdk.LoginRoute, decision.Redirect)
}

func TestSessionLoginDuringResolveWins(t *testing.T) {
	api := newFakeAPI(t)
	t1 := freshToken(t)
	api.accept(t1)
	client := newTestClient(t, api, nil, t1, freshToken(t))
	session := sdk.NewSession(client)
	ctx := context.Background()

	started, release := api.gateProfile()
	done := make(chan error, 1)
	go func() { done <- session.Resolve(ctx) }()

	<-started
	_, err := session.Login(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	scope := session.Scope()
	require.NotNil(t, scope)
	release()

	assert.ErrorIs(t, <-done, sdk.ErrSessionEnded)
	assert.Same(t, scope, session.Scope(), "the older resolution does not replace the login")
	assert.NotEqual(t, t1, client.Store().Get().AccessToken)
}

func TestSessionFailedLoginKeepsUser(t *testing.T) {
	api := newFakeAPI(t)
	session := sdk.NewSession(newTestClient(t, api, nil, "", ""))
	ctx := context.Background()

	_, err := session.Login(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	scope := session.Scope()

	_, err = session.Login(ctx, "a@b.com", "wrong")
	require.Error(t, err)
	assert.True(t, session.IsResolved())
	assert.NotNil(t, session.User())
	assert.Same(t, scope, session.Scope())
}
