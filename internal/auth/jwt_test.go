package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/model"
)

func testMe() *model.Me {
	company, branch := int64(3), int64(7)
	return &model.Me{
		User: model.User{
			ID:        1,
			Username:  "ana",
			CompanyID: &company,
			BranchID:  &branch,
		},
		Permissions: []string{model.PermSalesCreate, model.PermProductsView},
	}
}

func TestAccessToken(t *testing.T) {
	iss := NewIssuer("test-secret-key", 0, 0)

	token, err := iss.Access(testMe())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := iss.Validate(token, TypeAccess)
	require.NoError(t, err)

	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, int64(3), claims.Company())
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, int64(7), *claims.BranchID)
	assert.True(t, claims.Can(model.PermSalesCreate))
	assert.False(t, claims.Can(model.PermSalesVoid))
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(DefaultAccessTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func TestAdminCanEverything(t *testing.T) {
	c := &Claims{IsAdmin: true}
	for _, p := range model.Permissions {
		assert.True(t, c.Can(p.Code), p.Code)
	}
	assert.Equal(t, int64(0), c.Company())
}

func TestRefreshToken(t *testing.T) {
	iss := NewIssuer("test-secret-key", time.Minute, time.Hour)

	token, issued, err := iss.Refresh(1, "ana")
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := iss.Validate(token, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Empty(t, claims.Permissions)
	assert.Nil(t, claims.CompanyID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	iss := NewIssuer("s", 0, 0)

	access, err := iss.Access(testMe())
	require.NoError(t, err)
	refresh, _, err := iss.Refresh(1, "ana")
	require.NoError(t, err)

	_, err = iss.Validate(access, TypeRefresh)
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = iss.Validate(refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestValidateRejects(t *testing.T) {
	iss := NewIssuer("secret1", time.Minute, 0)
	token, err := iss.Access(testMe())
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewIssuer("secret2", 0, 0).Validate(token, TypeAccess)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := iss.Validate("not-a-token", TypeAccess)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewIssuer("secret1", time.Minute, 0)
		late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err := late.Validate(token, TypeAccess)
		assert.Error(t, err)
	})
}

func TestUniqueJTI(t *testing.T) {
	iss := NewIssuer("s", 0, 0)
	_, a, err := iss.Refresh(1, "ana")
	require.NoError(t, err)
	_, b, err := iss.Refresh(1, "ana")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
