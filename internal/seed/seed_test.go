package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

func TestRun(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	res, err := Run(ctx, database, Options{Seed: 42, Branches: 2, Products: 12, Sales: 5}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Company)
	assert.Equal(t, 2, res.Branches)
	assert.Equal(t, []string{"demo-cashier1", "demo-cashier2"}, res.Cashiers)
	assert.Equal(t, 3, res.Suppliers)
	assert.NotZero(t, res.Products)

	branches, err := store.ListBranches(ctx, database, res.Company.ID)
	require.NoError(t, err)
	assert.Len(t, branches, 2)

	products, err := store.ListProducts(ctx, database, res.Company.ID, model.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, res.Products)
	for _, p := range products {
		assert.Len(t, p.Barcode, 13)
	}

	sales, err := store.ListSales(ctx, database, res.Company.ID, model.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, sales, res.Sales)

	cashier, err := store.GetUserByUsername(ctx, database, "demo-cashier1")
	require.NoError(t, err)
	require.NotNil(t, cashier)
	assert.Equal(t, branches[0].CompanyID, *cashier.CompanyID)

	_, err = Run(ctx, database, Options{}, nil)
	assert.ErrorIs(t, err, ErrAlreadySeeded)
}

func TestEAN13(t *testing.T) {
	tests := map[string]string{
		"400638133393": "4006381333931",
		"590123412345": "5901234123457",
		"000000000000": "0000000000000",
	}
	for in, want := range tests {
		assert.Equal(t, want, EAN13(in))
	}
}
