package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	s := NewFileTokenStore(path)

	got, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, got.AccessToken)

	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Save(StoredToken{AccessToken: "tok", ExpiresAt: exp}))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	got, err = s.Load()
	require.NoError(t, err)
	require.Equal(t, "tok", got.AccessToken)
	require.True(t, exp.Equal(got.ExpiresAt))

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileTokenStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := NewFileTokenStore(path).Load()
	require.Error(t, err)
}

func TestDefaultTokenPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	require.Equal(t, "/tmp/cfg/asset-registry/token.json", DefaultTokenPath())
}

func TestMemoryTokenStore(t *testing.T) {
	var s MemoryTokenStore
	require.NoError(t, s.Save(StoredToken{AccessToken: "a"}))
	got, _ := s.Load()
	require.Equal(t, "a", got.AccessToken)
	require.NoError(t, s.Clear())
	got, _ = s.Load()
	require.Empty(t, got.AccessToken)
}

func TestSessionContext_Anonymous(t *testing.T) {
	sc := NewSessionContext(nil, &MemoryTokenStore{}, true)
	require.False(t, sc.Authenticated())
	require.Nil(t, sc.Principal())
	require.True(t, sc.RequireTransportSecurity())

	md, err := sc.GetRequestMetadata(t.Context())
	require.NoError(t, err)
	require.Empty(t, md)
	require.ErrorIs(t, sc.Close(t.Context()), ErrNotAuthenticated)

	sc.set("tok", nil)
	md, err = sc.GetRequestMetadata(t.Context())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", md["authorization"])
}
