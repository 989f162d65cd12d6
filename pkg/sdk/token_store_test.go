package sdk_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

type failingStore struct {
	sdk.MemoryStore
	loadErr   error
	saveErr   error
	deleteErr error
}

func (f *failingStore) DeleteCredentials() error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.DeleteCredentials()
}

func (f *failingStore) LoadCredentials() (sdk.Credentials, error) {
	if f.loadErr != nil {
		return sdk.Credentials{}, f.loadErr
	}
	return f.MemoryStore.LoadCredentials()
}

func (f *failingStore) SaveCredentials(c sdk.Credentials) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.SaveCredentials(c)
}

func TestTokenStoreSetGetClear(t *testing.T) {
	persist := sdk.NewMemoryStore()
	store, err := sdk.NewTokenStore(persist)
	require.NoError(t, err)
	assert.True(t, store.Get().Empty())

	require.NoError(t, store.Set("T1", "R1"))
	assert.Equal(t, sdk.Credentials{AccessToken: "T1", RefreshToken: "R1"}, store.Get())

	saved, err := persist.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, store.Get(), saved)

	require.NoError(t, store.Clear())
	assert.True(t, store.Get().Empty())
	_, err = persist.LoadCredentials()
	assert.ErrorIs(t, err, sdk.ErrNoCredentials)
}

func TestTokenStoreHydratesFromPersistence(t *testing.T) {
	persist := sdk.NewMemoryStore()
	require.NoError(t, persist.SaveCredentials(sdk.Credentials{AccessToken: "T1", RefreshToken: "R1"}))

	store, err := sdk.NewTokenStore(persist)
	require.NoError(t, err)
	assert.Equal(t, "T1", store.Get().AccessToken)
}

func TestTokenStoreLoadError(t *testing.T) {
	_, err := sdk.NewTokenStore(&failingStore{loadErr: errors.New("disk gone")})
	assert.Error(t, err)
}

func TestTokenStoreSaveErrorKeepsPreviousPair(t *testing.T) {
	persist := &failingStore{}
	store, err := sdk.NewTokenStore(persist)
	require.NoError(t, err)
	require.NoError(t, store.Set("T1", "R1"))

	persist.saveErr = errors.New("read-only")
	require.Error(t, store.Set("T2", "R2"))
	assert.Equal(t, "T1", store.Get().AccessToken)
}

func TestTokenStoreClearOverwritesPairWhenDeleteFails(t *testing.T) {
	persist := &failingStore{}
	store, err := sdk.NewTokenStore(persist)
	require.NoError(t, err)
	require.NoError(t, store.Set("T1", "R1"))

	persist.deleteErr = errors.New("permission denied")
	err = store.Clear()
	require.ErrorIs(t, err, persist.deleteErr)
	assert.True(t, store.Get().Empty())

	reopened, err := sdk.NewTokenStore(persist)
	require.NoError(t, err)
	assert.True(t, reopened.Get().Empty(), "old pair must not come back")

	require.NoError(t, store.Set("T2", "R2"))
	persist.saveErr = errors.New("read-only")
	cleared, err := store.ClearIf(store.Version())
	assert.True(t, cleared)
	require.ErrorIs(t, err, persist.deleteErr)
	assert.ErrorIs(t, err, persist.saveErr)
}

func TestTokenStoreRotate(t *testing.T) {
	store, err := sdk.NewTokenStore(nil)
	require.NoError(t, err)
	require.NoError(t, store.Set("T1", "R1"))

	_, version := store.Snapshot()
	applied, err := store.Rotate(version, "T2", "")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, sdk.Credentials{AccessToken: "T2", RefreshToken: "R1"}, store.Get())

	applied, err = store.Rotate(version, "T3", "R3")
	require.NoError(t, err)
	assert.False(t, applied, "stale version must not be written")
	assert.Equal(t, "T2", store.Get().AccessToken)
}

func TestTokenStoreRotateAfterClearIsDiscarded(t *testing.T) {
	store, err := sdk.NewTokenStore(nil)
	require.NoError(t, err)
	require.NoError(t, store.Set("T1", "R1"))

	version := store.Version()
	require.NoError(t, store.Clear())

	applied, err := store.Rotate(version, "T2", "R2")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.True(t, store.Get().Empty())
}

func TestTokenStoreClearIf(t *testing.T) {
	store, err := sdk.NewTokenStore(nil)
	require.NoError(t, err)
	require.NoError(t, store.Set("T1", "R1"))
	version := store.Version()

	require.NoError(t, store.Set("T2", "R2"))
	cleared, err := store.ClearIf(version)
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Equal(t, "T2", store.Get().AccessToken)

	cleared, err = store.ClearIf(store.Version())
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.True(t, store.Get().Empty())
}

func TestTokenStoreSubscribe(t *testing.T) {
	store, err := sdk.NewTokenStore(nil)
	require.NoError(t, err)

	var seen []sdk.Credentials
	unsubscribe := store.Subscribe(func(c sdk.Credentials) { seen = append(seen, c) })

	require.NoError(t, store.Set("T1", "R1"))
	require.NoError(t, store.Clear())
	unsubscribe()
	require.NoError(t, store.Set("T2", "R2"))

	assert.Equal(t, []sdk.Credentials{{AccessToken: "T1", RefreshToken: "R1"}, {}}, seen)
}
