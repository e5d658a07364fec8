package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/model"
)

func TestMovementsChangeStock(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	ctx := context.Background()
	userID := &tn.user.ID

	moves, err := CreateMovement(ctx, tn.db, tn.company.ID, userID, model.CreateMovementRequest{
		BranchID: tn.branch.ID, ProductID: tn.product.ID, Type: model.MovementIn, Quantity: 10, Reference: "delivery",
	})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, 10, moves[0].Quantity)
	assert.Equal(t, "Coffee", moves[0].ProductName)
	assert.Equal(t, tn.user.ID, *moves[0].CreatedBy)

	// Out takes the absolute quantity.
	moves, err = CreateMovement(ctx, tn.db, tn.company.ID, userID, model.CreateMovementRequest{
		BranchID: tn.branch.ID, ProductID: tn.product.ID, Type: model.MovementOut, Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, -3, moves[0].Quantity)

	// Adjust applies the signed quantity.
	_, err = CreateMovement(ctx, tn.db, tn.company.ID, userID, model.CreateMovementRequest{
		BranchID: tn.branch.ID, ProductID: tn.product.ID, Type: model.MovementAdjust, Quantity: -2,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, tn.stock(t))

	all, err := ListMovements(ctx, tn.db, tn.company.ID, model.MovementFilter{ProductID: tn.product.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	adjustments, err := ListMovements(ctx, tn.db, tn.company.ID, model.MovementFilter{Type: model.MovementAdjust})
	require.NoError(t, err)
	assert.Len(t, adjustments, 1)
}

func TestMovementInsufficientStock(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	ctx := context.Background()
	tn.stockIn(t, 2)

	_, err := CreateMovement(ctx, tn.db, tn.company.ID, nil, model.CreateMovementRequest{
		BranchID: tn.branch.ID, ProductID: tn.product.ID, Type: model.MovementOut, Quantity: 5,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.EqualError(t, err, "insufficient stock for Coffee: 2 available, 5 requested")
	assert.Equal(t, 2, tn.stock(t))
}

func TestOutMovementDrainsStockToZero(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	ctx := context.Background()
	tn.stockIn(t, 4)

	for _, qty := range []int{3, 1} {
		_, err := CreateMovement(ctx, tn.db, tn.company.ID, nil, model.CreateMovementRequest{
			BranchID: tn.branch.ID, ProductID: tn.product.ID, Type: model.MovementOut, Quantity: qty,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, tn.stock(t))

	_, err := CreateMovement(ctx, tn.db, tn.company.ID, nil, model.CreateMovementRequest{
		BranchID: tn.branch.ID, ProductID: tn.product.ID, Type: model.MovementAdjust, Quantity: -1,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, tn.stock(t))
}

func TestTransfer(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	ctx := context.Background()
	tn.stockIn(t, 10)

	north, err := CreateBranch(ctx, tn.db, tn.company.ID, model.BranchRequest{Name: "North"})
	require.NoError(t, err)

	moves, err := CreateMovement(ctx, tn.db, tn.company.ID, nil, model.CreateMovementRequest{
		BranchID: tn.branch.ID, ProductID: tn.product.ID, Type: model.MovementTransfer, Quantity: 4, ToBranchID: north.ID,
	})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, -4, moves[0].Quantity)
	assert.Equal(t, 4, moves[1].Quantity)
	assert.Equal(t, "from branch 1", moves[1].Reference)

	stock, err := ListStock(ctx, tn.db, tn.company.ID, 0)
	require.NoError(t, err)
	require.Len(t, stock, 2)
	byBranch := map[int64]int{}
	for _, s := range stock {
		byBranch[s.BranchID] = s.Quantity
	}
	assert.Equal(t, map[int64]int{tn.branch.ID: 6, north.ID: 4}, byBranch)

	_, err = CreateMovement(ctx, tn.db, tn.company.ID, nil, model.CreateMovementRequest{
		BranchID: tn.branch.ID, ProductID: tn.product.ID, Type: model.MovementTransfer, Quantity: 1, ToBranchID: tn.branch.ID,
	})
	require.ErrorIs(t, err, ErrInvalid)

	// A failed transfer leaves both sides untouched.
	_, err = CreateMovement(ctx, tn.db, tn.company.ID, nil, model.CreateMovementRequest{
		BranchID: north.ID, ProductID: tn.product.ID, Type: model.MovementTransfer, Quantity: 50, ToBranchID: tn.branch.ID,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 6, tn.stock(t))
}

func TestMovementForeignProduct(t *testing.T) {
	database := db.NewTestDB(t)
	a := addTenant(t, database, "A", model.PlanPro)
	b := addTenant(t, database, "B", model.PlanPro)

	_, err := CreateMovement(context.Background(), database, a.company.ID, nil, model.CreateMovementRequest{
		BranchID: a.branch.ID, ProductID: b.product.ID, Type: model.MovementIn, Quantity: 1,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLowStock(t *testing.T) {
	tn := newTenant(t, model.PlanPro)
	ctx := context.Background()

	// Never stocked but with a minimum of two.
	low, err := LowStock(ctx, tn.db, tn.company.ID, 0)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, 0, low[0].Quantity)
	assert.True(t, low[0].Low())

	tn.stockIn(t, 5)
	low, err = LowStock(ctx, tn.db, tn.company.ID, tn.branch.ID)
	require.NoError(t, err)
	assert.Empty(t, low)
}
