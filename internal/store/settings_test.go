package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/db"
)

func TestGetJWTSecretGeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Len(t, secret1, 64) // 32 bytes = 64 hex chars

	secret2, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, secret1, secret2)
}

func TestSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	value, err := GetSetting(ctx, database, "missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, SetSetting(ctx, database, "currency", "EUR"))
	require.NoError(t, SetSetting(ctx, database, "currency", "USD"))
	value, err = GetSetting(ctx, database, "currency")
	require.NoError(t, err)
	assert.Equal(t, "USD", value)
}

func TestMarkSeeded(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	before, err := MarkSeeded(ctx, database)
	require.NoError(t, err)
	assert.False(t, before)

	before, err = MarkSeeded(ctx, database)
	require.NoError(t, err)
	assert.True(t, before)
}
