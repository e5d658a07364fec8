package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/model"
)

func (tn *tenant) sell(t *testing.T, method string, qty int, paid string) (*model.Sale, error) {
	t.Helper()
	req := model.CreateSaleRequest{
		BranchID:      tn.branch.ID,
		PaymentMethod: method,
		Items:         []model.SaleItemRequest{{ProductID: tn.product.ID, Quantity: qty}},
	}
	if paid != "" {
		req.Paid = dec(paid)
	}
	return CreateSale(context.Background(), tn.db, tn.company.ID, tn.user.ID, req)
}

func TestCreateCashSale(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 10)
	shift := tn.openShift(t, "100")

	sale, err := tn.sell(t, model.PaymentCash, 2, "30")
	require.NoError(t, err)

	assert.True(t, sale.Subtotal.Equal(dec("20")))
	assert.True(t, sale.Tax.Equal(dec("4.40")))
	assert.True(t, sale.Total.Equal(dec("24.40")))
	assert.True(t, sale.Change.Equal(dec("5.60")))
	assert.Equal(t, model.SaleCompleted, sale.Status)
	assert.Equal(t, shift.ID, *sale.ShiftID)
	assert.Regexp(t, `^\d{8}-[0-9A-F]{12}$`, sale.Receipt)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Coffee", sale.Items[0].ProductName)
	assert.Equal(t, tn.user.Username, sale.Cashier)

	assert.Equal(t, 8, tn.stock(t))

	moves, err := ListMovements(context.Background(), tn.db, tn.company.ID, model.MovementFilter{Type: model.MovementSale})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, sale.Receipt, moves[0].Reference)
}

func TestCreateSaleUsesCatalogPriceAndDiscount(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 10)

	sale, err := CreateSale(context.Background(), tn.db, tn.company.ID, tn.user.ID, model.CreateSaleRequest{
		BranchID:      tn.branch.ID,
		PaymentMethod: model.PaymentCard,
		Discount:      dec("2"),
		Items:         []model.SaleItemRequest{{ProductID: tn.product.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	require.Len(t, sale.Items, 1)
	assert.True(t, sale.Items[0].UnitPrice.Equal(dec("10")))
	assert.True(t, sale.Subtotal.Equal(dec("30")))
	assert.True(t, sale.Discount.Equal(dec("2")))
	assert.True(t, sale.Tax.Equal(dec("6.16")))
	assert.True(t, sale.Total.Equal(dec("34.16")))
	assert.True(t, sale.Paid.Equal(sale.Total), "card sales are paid exactly")
	assert.True(t, sale.Change.IsZero())
	assert.Nil(t, sale.ShiftID)
}

func TestCreateSaleDiscountIsClamped(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 1)

	sale, err := CreateSale(context.Background(), tn.db, tn.company.ID, tn.user.ID, model.CreateSaleRequest{
		BranchID:      tn.branch.ID,
		PaymentMethod: model.PaymentCard,
		Discount:      dec("50"),
		Items:         []model.SaleItemRequest{{ProductID: tn.product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, sale.Discount.Equal(dec("10")))
	assert.True(t, sale.Total.IsZero())
}

func TestCreateSaleRejects(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 1)
	ctx := context.Background()

	t.Run("cash without shift", func(t *testing.T) {
		_, err := tn.sell(t, model.PaymentCash, 1, "20")
		require.ErrorIs(t, err, ErrNoOpenShift)
	})

	tn.openShift(t, "0")

	t.Run("insufficient payment", func(t *testing.T) {
		_, err := tn.sell(t, model.PaymentCash, 1, "5")
		require.ErrorIs(t, err, ErrInsufficientPayment)
		assert.EqualError(t, err, "insufficient payment: 5.00 paid, 12.20 due")
	})

	t.Run("insufficient stock", func(t *testing.T) {
		_, err := tn.sell(t, model.PaymentCard, 2, "")
		require.ErrorIs(t, err, ErrInsufficientStock)
	})

	t.Run("negative discount", func(t *testing.T) {
		_, err := CreateSale(ctx, tn.db, tn.company.ID, tn.user.ID, model.CreateSaleRequest{
			BranchID:      tn.branch.ID,
			PaymentMethod: model.PaymentCard,
			Discount:      dec("-1"),
			Items:         []model.SaleItemRequest{{ProductID: tn.product.ID, Quantity: 1}},
		})
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("inactive product", func(t *testing.T) {
		p, err := CreateProduct(ctx, tn.db, tn.company.ID, model.ProductRequest{SKU: "OLD", Name: "Old", Active: ptr(false)})
		require.NoError(t, err)
		_, err = CreateSale(ctx, tn.db, tn.company.ID, tn.user.ID, model.CreateSaleRequest{
			BranchID:      tn.branch.ID,
			PaymentMethod: model.PaymentCard,
			Items:         []model.SaleItemRequest{{ProductID: p.ID, Quantity: 1}},
		})
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "Old is not for sale")
	})

	// Nothing was sold.
	assert.Equal(t, 1, tn.stock(t))
	sales, err := ListSales(ctx, tn.db, tn.company.ID, model.SaleFilter{})
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestVoidSaleRestoresStock(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 5)
	ctx := context.Background()

	sale, err := tn.sell(t, model.PaymentCard, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 2, tn.stock(t))

	voided, err := VoidSale(ctx, tn.db, tn.company.ID, tn.user.ID, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleVoided, voided.Status)
	assert.NotNil(t, voided.VoidedAt)
	assert.Equal(t, 5, tn.stock(t))

	_, err = VoidSale(ctx, tn.db, tn.company.ID, tn.user.ID, sale.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = VoidSale(ctx, tn.db, tn.company.ID, tn.user.ID, 999)
	require.ErrorIs(t, err, ErrNotFound)

	activity, err := ListActivity(ctx, tn.db, tn.company.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, activity)
	assert.Equal(t, ActionVoided, activity[0].Action)
	assert.Equal(t, tn.user.Username, activity[0].Username)
}

func TestListSalesFilters(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 5)
	ctx := context.Background()

	first, err := tn.sell(t, model.PaymentCard, 1, "")
	require.NoError(t, err)
	_, err = tn.sell(t, model.PaymentCard, 1, "")
	require.NoError(t, err)
	_, err = VoidSale(ctx, tn.db, tn.company.ID, tn.user.ID, first.ID)
	require.NoError(t, err)

	all, err := ListSales(ctx, tn.db, tn.company.ID, model.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Nil(t, all[0].Items)

	completed, err := ListSales(ctx, tn.db, tn.company.ID, model.SaleFilter{Status: model.SaleCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestShiftLifecycle(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	tn.stockIn(t, 10)
	ctx := context.Background()

	shift := tn.openShift(t, "50.00")
	assert.Equal(t, model.ShiftOpen, shift.Status)
	assert.Nil(t, shift.ClosingCash)

	_, err := OpenShift(ctx, tn.db, tn.company.ID, tn.user.ID, model.OpenShiftRequest{BranchID: tn.branch.ID})
	require.ErrorIs(t, err, ErrShiftAlreadyOpen)

	current, err := CurrentShift(ctx, tn.db, tn.user.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, shift.ID, current.ID)

	// 12.20 in cash, 12.20 by card, and a voided cash sale.
	_, err = tn.sell(t, model.PaymentCash, 1, "20")
	require.NoError(t, err)
	_, err = tn.sell(t, model.PaymentCard, 1, "")
	require.NoError(t, err)
	voided, err := tn.sell(t, model.PaymentCash, 1, "20")
	require.NoError(t, err)
	_, err = VoidSale(ctx, tn.db, tn.company.ID, tn.user.ID, voided.ID)
	require.NoError(t, err)

	closed, err := CloseShift(ctx, tn.db, tn.company.ID, shift.ID, model.CloseShiftRequest{
		ClosingCash: dec("60.00"),
		Notes:       "short",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ShiftClosed, closed.Status)
	assert.True(t, closed.ExpectedCash.Equal(dec("62.20")))
	assert.True(t, closed.Difference.Equal(dec("-2.20")))
	assert.NotNil(t, closed.ClosedAt)

	_, err = CloseShift(ctx, tn.db, tn.company.ID, shift.ID, model.CloseShiftRequest{ClosingCash: decimal.Zero})
	require.ErrorIs(t, err, ErrInvalidState)

	current, err = CurrentShift(ctx, tn.db, tn.user.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	shifts, err := ListShifts(ctx, tn.db, tn.company.ID, tn.branch.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, shifts, 1)
}

func TestOpenShiftNegativeCash(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	_, err := OpenShift(context.Background(), tn.db, tn.company.ID, tn.user.ID, model.OpenShiftRequest{
		BranchID:    tn.branch.ID,
		OpeningCash: dec("-1"),
	})
	require.ErrorIs(t, err, ErrInvalid)
}
