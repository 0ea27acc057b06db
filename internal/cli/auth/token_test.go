package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_TokenAndLogin(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "token"))

	_, err := s.LoadToken()
	assert.Error(t, err)

	require.NoError(t, s.SaveToken("tok-1\n"))
	tok, err := s.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	require.NoError(t, s.SaveLogin("alice"))
	login, err := s.LoadLogin()
	require.NoError(t, err)
	assert.Equal(t, "alice", login)

	info, err := os.Stat(s.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	_, err = s.LoadToken()
	assert.Error(t, err)
	require.NoError(t, s.Clear())
}

func TestStore_Errors(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "token"))
	assert.Error(t, s.SaveToken(""))
	assert.Error(t, s.SaveLogin(""))

	require.NoError(t, os.WriteFile(s.Path, []byte("  \n"), 0o600))
	_, err := s.LoadToken()
	assert.EqualError(t, err, "empty token file")

	_, err = NewStore("").LoadToken()
	assert.Error(t, err)
}
