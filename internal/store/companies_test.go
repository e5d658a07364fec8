package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/model"
)

func TestCreateCompanyStartsTrial(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	company, err := CreateCompany(ctx, database, model.CreateCompanyRequest{
		Name:          "Acme",
		Plan:          model.PlanPro,
		AdminUsername: "acme-admin",
	}, "hash")
	require.NoError(t, err)
	assert.Equal(t, model.CompanyStatusActive, company.Status)

	sub, err := CurrentSubscription(ctx, database, company.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, model.PlanPro, sub.Plan)
	assert.Equal(t, model.SubscriptionTrial, sub.Status)
	assert.Equal(t, 5, sub.MaxBranches)
	require.NotNil(t, sub.EndsAt)
	assert.WithinDuration(t, time.Now().Add(TrialPeriod), *sub.EndsAt, time.Minute)

	admin, err := GetUserByUsername(ctx, database, "acme-admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, company.ID, *admin.CompanyID)
}

func TestCreateCompanyDuplicateAdminRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateCompany(ctx, database, model.CreateCompanyRequest{Name: "A", AdminUsername: "admin"}, "hash")
	require.NoError(t, err)

	_, err = CreateCompany(ctx, database, model.CreateCompanyRequest{Name: "B", AdminUsername: "admin"}, "hash")
	require.ErrorIs(t, err, ErrConflict)

	companies, err := ListCompanies(ctx, database)
	require.NoError(t, err)
	assert.Len(t, companies, 1)
}

func TestDeleteCompanySuspendsAndRemovesUsers(t *testing.T) {
	tn := newTenant(t, model.PlanBasic)
	ctx := context.Background()

	require.NoError(t, DeleteCompany(ctx, tn.db, tn.company.ID))

	company, err := GetCompany(ctx, tn.db, tn.company.ID)
	require.NoError(t, err)
	assert.Nil(t, company)

	user, err := GetUserByUsername(ctx, tn.db, tn.user.Username)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestPlanLimits(t *testing.T) {
	tn := newTenant(t, model.PlanBasic)
	ctx := context.Background()

	// Basic allows a single branch.
	_, err := CreateBranch(ctx, tn.db, tn.company.ID, model.BranchRequest{Name: "Second"})
	require.ErrorIs(t, err, ErrPlanLimit)
	assert.Contains(t, err.Error(), "branches")

	sub, err := CurrentSubscription(ctx, tn.db, tn.company.ID)
	require.NoError(t, err)
	require.NoError(t, UpdateSubscription(ctx, tn.db, sub.ID, model.SubscriptionRequest{
		CompanyID:   tn.company.ID,
		Plan:        model.PlanBasic,
		Status:      model.SubscriptionActive,
		MaxBranches: ptr(2),
	}))

	_, err = CreateBranch(ctx, tn.db, tn.company.ID, model.BranchRequest{Name: "Second"})
	require.NoError(t, err)
	_, err = CreateBranch(ctx, tn.db, tn.company.ID, model.BranchRequest{Name: "Third"})
	require.ErrorIs(t, err, ErrPlanLimit)
}

func TestEnterpriseIsUnlimited(t *testing.T) {
	tn := newTenant(t, model.PlanEnterprise)
	ctx := context.Background()

	for _, name := range []string{"North", "South", "East"} {
		_, err := CreateBranch(ctx, tn.db, tn.company.ID, model.BranchRequest{Name: name})
		require.NoError(t, err)
	}
}

func TestCancelledSubscriptionIsNotCurrent(t *testing.T) {
	tn := newTenant(t, model.PlanBasic)
	ctx := context.Background()

	sub, err := CurrentSubscription(ctx, tn.db, tn.company.ID)
	require.NoError(t, err)
	require.NoError(t, UpdateSubscription(ctx, tn.db, sub.ID, model.SubscriptionRequest{
		CompanyID: tn.company.ID,
		Plan:      model.PlanBasic,
		Status:    model.SubscriptionCancelled,
	}))

	sub, err = CurrentSubscription(ctx, tn.db, tn.company.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)

	// Without a subscription nothing is limited.
	_, err = CreateBranch(ctx, tn.db, tn.company.ID, model.BranchRequest{Name: "Second"})
	require.NoError(t, err)
}

func TestCreateSubscriptionUnknownCompany(t *testing.T) {
	database := db.NewTestDB(t)
	_, err := CreateSubscription(context.Background(), database, model.SubscriptionRequest{
		CompanyID: 42,
		Plan:      model.PlanPro,
		Status:    model.SubscriptionActive,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetUsage(t *testing.T) {
	tn := newTenant(t, model.PlanBasic)
	ctx := context.Background()

	usage, err := GetUsage(ctx, tn.db, *tn.company)
	require.NoError(t, err)
	assert.Equal(t, model.Usage{Used: 1, Limit: 1}, usage.Branches)
	assert.Equal(t, model.Usage{Used: 1, Limit: 5}, usage.Users)
	assert.Equal(t, model.Usage{Used: 1, Limit: 500}, usage.Products)
	assert.Equal(t, model.PlanBasic, usage.Plan)

	all, err := PlatformUsage(ctx, tn.db)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestExpiringSubscriptions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	addTenant(t, database, "Acme", model.PlanBasic)

	// The trial ends in 30 days.
	subs, err := ExpiringSubscriptions(ctx, database, time.Now(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, subs)

	subs, err = ExpiringSubscriptions(ctx, database, time.Now(), 31*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Acme", subs[0].CompanyName)
}
