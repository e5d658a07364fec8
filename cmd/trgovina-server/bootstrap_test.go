package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/store"
)

func TestEnsurePlatformAdmin(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	password, err := ensurePlatformAdmin(ctx, database, "root")
	require.NoError(t, err)
	assert.Len(t, password, 16)

	u, err := store.GetUserByUsername(ctx, database, "root")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsPlatformAdmin)
	assert.Nil(t, u.CompanyID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)))

	password, err = ensurePlatformAdmin(ctx, database, "other")
	require.NoError(t, err)
	assert.Empty(t, password)

	other, err := store.GetUserByUsername(ctx, database, "other")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(24)
	require.NoError(t, err)
	b, err := generatePassword(24)
	require.NoError(t, err)
	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
}
