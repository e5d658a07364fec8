package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/model"
)

func TestSalesSummaryAndTopProducts(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 20)
	tn.openShift(t, "0")
	ctx := context.Background()

	tea, err := CreateProduct(ctx, tn.db, tn.company.ID, model.ProductRequest{SKU: "TEA", Name: "Tea", Price: dec("3.00")})
	require.NoError(t, err)
	_, err = CreateMovement(ctx, tn.db, tn.company.ID, nil, model.CreateMovementRequest{
		BranchID: tn.branch.ID, ProductID: tea.ID, Type: model.MovementIn, Quantity: 20,
	})
	require.NoError(t, err)

	_, err = tn.sell(t, model.PaymentCash, 1, "12.20") // 12.20
	require.NoError(t, err)
	_, err = tn.sell(t, model.PaymentCard, 2, "") // 24.40
	require.NoError(t, err)
	voided, err := tn.sell(t, model.PaymentCard, 5, "")
	require.NoError(t, err)
	_, err = VoidSale(ctx, tn.db, tn.company.ID, tn.user.ID, voided.ID)
	require.NoError(t, err)
	_, err = CreateSale(ctx, tn.db, tn.company.ID, tn.user.ID, model.CreateSaleRequest{
		BranchID:      tn.branch.ID,
		PaymentMethod: model.PaymentCard,
		Items:         []model.SaleItemRequest{{ProductID: tea.ID, Quantity: 4}}, // 14.64
	})
	require.NoError(t, err)

	period := model.ReportPeriod{From: time.Now().Add(-time.Hour), To: time.Now().Add(time.Hour)}
	sum, err := SalesSummary(ctx, tn.db, tn.company.ID, period)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 1, sum.VoidedCount)
	assert.True(t, sum.Total.Equal(dec("51.24")), sum.Total.String())
	assert.True(t, sum.CashTotal.Equal(dec("12.20")))
	assert.True(t, sum.CardTotal.Equal(dec("39.04")))
	assert.True(t, sum.AverageSale.Equal(dec("17.08")))

	top, err := TopProducts(ctx, tn.db, tn.company.ID, period)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Tea", top[0].Name)
	assert.Equal(t, 4, top[0].Quantity)
	assert.Equal(t, 3, top[1].Quantity)
	assert.True(t, top[1].Revenue.Equal(dec("30")))

	top, err = TopProducts(ctx, tn.db, tn.company.ID, model.ReportPeriod{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, top, 1)

	empty, err := SalesSummary(ctx, tn.db, tn.company.ID, model.ReportPeriod{From: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.True(t, empty.AverageSale.IsZero())
}

func TestInventoryValue(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 4)
	ctx := context.Background()

	_, err := CreateBranch(ctx, tn.db, tn.company.ID, model.BranchRequest{Name: "Annex"})
	require.NoError(t, err)

	values, err := InventoryValue(ctx, tn.db, tn.company.ID, 0)
	require.NoError(t, err)
	require.Len(t, values, 2)

	// Ordered by branch name.
	assert.Equal(t, "Acme Center", values[0].BranchName)
	assert.Equal(t, 4, values[0].Units)
	assert.True(t, values[0].CostValue.Equal(dec("24")))
	assert.True(t, values[0].RetailValue.Equal(dec("40")))
	assert.Equal(t, "Annex", values[1].BranchName)
	assert.Zero(t, values[1].Units)
}
