package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/model"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	assert.False(t, s.LoggedIn())

	require.NoError(t, s.SetTokens(Tokens{Access: "a1", Refresh: "r1"}))
	assert.True(t, s.LoggedIn())

	require.NoError(t, s.SetAccess("a2"))
	assert.Equal(t, Tokens{Access: "a2", Refresh: "r1"}, s.Tokens())

	require.NoError(t, s.Clear())
	assert.Equal(t, Tokens{}, s.Tokens())
	assert.False(t, s.LoggedIn())
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())

	branch := int64(7)
	require.NoError(t, s.SetTokens(Tokens{Access: "a", Refresh: "r"}))
	require.NoError(t, s.SetUser(&model.Me{User: model.User{ID: 3, Username: "ana", BranchID: &branch}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "a", Refresh: "r"}, reopened.Tokens())
	require.NotNil(t, reopened.User())
	assert.Equal(t, "ana", reopened.User().Username)
	assert.Equal(t, int64(7), reopened.BranchID(), "home branch becomes the active branch")

	require.NoError(t, reopened.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSetUserKeepsSelectedBranch(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SetBranch(2))

	home := int64(9)
	require.NoError(t, s.SetUser(&model.Me{User: model.User{BranchID: &home}}))
	assert.Equal(t, int64(2), s.BranchID())
}

func TestCorruptFileIsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	assert.False(t, s.LoggedIn())
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	got, ok := AccessExpiry(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = AccessExpiry("")
	assert.False(t, ok)
	_, ok = AccessExpiry("not-a-jwt")
	assert.False(t, ok)
}
