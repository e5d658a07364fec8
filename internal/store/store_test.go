package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/model"
)

// tenant is a company with one branch, one cashier and one stocked product.
type tenant struct {
	db      *sql.DB
	company *model.Company
	branch  *model.Branch
	user    *model.User
	product *model.Product
}

func newTenant(t *testing.T, plan string) *tenant {
	t.Helper()
	database := db.NewTestDB(t)
	return addTenant(t, database, "Acme", plan)
}

func addTenant(t *testing.T, database *sql.DB, name, plan string) *tenant {
	t.Helper()
	ctx := context.Background()

	company, err := CreateCompany(ctx, database, model.CreateCompanyRequest{Name: name, Plan: plan}, "")
	require.NoError(t, err)

	branch, err := CreateBranch(ctx, database, company.ID, model.BranchRequest{
		Name:    name + " Center",
		TaxRate: decimal.RequireFromString("0.22"),
	})
	require.NoError(t, err)

	user, err := CreateUser(ctx, database, &model.User{
		CompanyID:    &company.ID,
		BranchID:     &branch.ID,
		Username:     name + "-cashier",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	product, err := CreateProduct(ctx, database, company.ID, model.ProductRequest{
		SKU:      "SKU-1",
		Barcode:  "4006381333931",
		Name:     "Coffee",
		Price:    decimal.RequireFromString("10.00"),
		Cost:     decimal.RequireFromString("6.00"),
		MinStock: 2,
	})
	require.NoError(t, err)

	return &tenant{db: database, company: company, branch: branch, user: user, product: product}
}

// stockIn records an incoming movement of qty units of the tenant's product.
func (tn *tenant) stockIn(t *testing.T, qty int) {
	t.Helper()
	_, err := CreateMovement(context.Background(), tn.db, tn.company.ID, nil, model.CreateMovementRequest{
		BranchID:  tn.branch.ID,
		ProductID: tn.product.ID,
		Type:      model.MovementIn,
		Quantity:  qty,
	})
	require.NoError(t, err)
}

func (tn *tenant) stock(t *testing.T) int {
	t.Helper()
	p, err := GetProduct(context.Background(), tn.db, tn.company.ID, tn.product.ID, tn.branch.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.Stock)
	return *p.Stock
}

func (tn *tenant) openShift(t *testing.T, cash string) *model.Shift {
	t.Helper()
	shift, err := OpenShift(context.Background(), tn.db, tn.company.ID, tn.user.ID, model.OpenShiftRequest{
		BranchID:    tn.branch.ID,
		OpeningCash: decimal.RequireFromString(cash),
	})
	require.NoError(t, err)
	return shift
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}
