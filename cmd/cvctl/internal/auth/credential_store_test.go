package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := NewFileStoreAt(dir)
	require.NoError(t, err)

	_, err = store.LoadCredentials()
	assert.ErrorIs(t, err, sdk.ErrNoCredentials)

	creds := sdk.Credentials{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, store.SaveCredentials(creds))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := store.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	require.NoError(t, store.DeleteCredentials())
	_, err = store.LoadCredentials()
	assert.ErrorIs(t, err, sdk.ErrNoCredentials)
	assert.NoError(t, store.DeleteCredentials(), "deleting twice is fine")
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	store, err := NewFileStoreAt(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	_, err = store.LoadCredentials()
	require.Error(t, err)
	assert.NotErrorIs(t, err, sdk.ErrNoCredentials)
}

func TestFileStoreTreatsEmptyPairAsMissing(t *testing.T) {
	store, err := NewFileStoreAt(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SaveCredentials(sdk.Credentials{}))

	_, err = store.LoadCredentials()
	assert.ErrorIs(t, err, sdk.ErrNoCredentials)
}

func TestScopeStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewScopeStoreAt(dir)
	require.NoError(t, err)

	role, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, role)

	require.NoError(t, store.Save(sdk.RoleEmployee))
	role, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, sdk.RoleEmployee, role)

	require.NoError(t, store.Delete())
	role, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, role)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left behind")
}
