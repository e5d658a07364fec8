package scheduler

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/trgovina/internal/db"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

type fixture struct {
	db      *sql.DB
	company *model.Company
	branch  *model.Branch
	product *model.Product
}

func setup(t *testing.T) fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	company, err := store.CreateCompany(ctx, database, model.CreateCompanyRequest{Name: "Acme"}, "")
	require.NoError(t, err)
	branch, err := store.CreateBranch(ctx, database, company.ID, model.BranchRequest{Name: "Center"})
	require.NoError(t, err)
	product, err := store.CreateProduct(ctx, database, company.ID, model.ProductRequest{
		SKU: "MILK", Name: "Milk", Price: decimal.NewFromInt(1), MinStock: 5,
	})
	require.NoError(t, err)

	return fixture{db: database, company: company, branch: branch, product: product}
}

func (f fixture) alerts(t *testing.T) []model.Alert {
	t.Helper()
	alerts, err := store.ListAlerts(context.Background(), f.db, f.company.ID, model.AlertFilter{})
	require.NoError(t, err)
	return alerts
}

func TestCheckStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := New(f.db, "", nil)

	// Never stocked with a minimum: out of stock.
	n, err := s.CheckStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	alerts := f.alerts(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertOutOfStock, alerts[0].Type)
	assert.Equal(t, model.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Milk is out of stock at Center", alerts[0].Message)

	// Unread alerts are not raised twice.
	n, err = s.CheckStock(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.CreateMovement(ctx, f.db, f.company.ID, nil, model.CreateMovementRequest{
		BranchID: f.branch.ID, ProductID: f.product.ID, Type: model.MovementIn, Quantity: 3,
	})
	require.NoError(t, err)

	n, err = s.CheckStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	alerts = f.alerts(t)
	require.Len(t, alerts, 2)
	assert.Equal(t, model.AlertLowStock, alerts[0].Type)
	assert.Equal(t, "Milk is low at Center: 3 left (minimum 5)", alerts[0].Message)

	// Once read, a still-low product is reported again.
	_, err = store.MarkAllAlertsRead(ctx, f.db, f.company.ID)
	require.NoError(t, err)
	n, err = s.CheckStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCheckStockSkipsSuspendedCompanies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, store.UpdateCompany(ctx, f.db, f.company.ID, model.UpdateCompanyRequest{
		Name: "Acme", Status: model.CompanyStatusSuspended,
	}))

	n, err := New(f.db, "", nil).CheckStock(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckSubscriptions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := New(f.db, "", nil)

	n, err := s.CheckSubscriptions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a fresh trial is not expiring")

	s.now = func() time.Time { return time.Now().Add(store.TrialPeriod - 3*24*time.Hour) }
	n, err = s.CheckSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	alerts := f.alerts(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertSubscriptionExpiring, alerts[0].Type)
	assert.Nil(t, alerts[0].BranchID)
	assert.Contains(t, alerts[0].Message, "Your basic subscription ends in")
}

func TestCheckOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	supplier, err := store.CreateSupplier(ctx, f.db, f.company.ID, model.SupplierRequest{Name: "Dairy Co"})
	require.NoError(t, err)
	expected := time.Now().Add(-48 * time.Hour)
	order, err := store.CreatePurchaseOrder(ctx, f.db, f.company.ID, nil, model.CreatePurchaseOrderRequest{
		SupplierID: supplier.ID,
		BranchID:   f.branch.ID,
		Status:     model.OrderOrdered,
		ExpectedAt: &expected,
		Items:      []model.PurchaseOrderItemRequest{{ProductID: f.product.ID, Quantity: 10, UnitCost: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)

	s := New(f.db, "", nil)
	n, err := s.CheckOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	alerts := f.alerts(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertOrderOverdue, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "from Dairy Co")

	// Receiving the order clears it from the overdue list.
	_, err = store.ReceivePurchaseOrder(ctx, f.db, f.company.ID, nil, order.ID)
	require.NoError(t, err)
	_, err = store.MarkAllAlertsRead(ctx, f.db, f.company.ID)
	require.NoError(t, err)
	n, err = s.CheckOrders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurgeTokens(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, store.RevokeToken(ctx, f.db, "old", time.Now().Add(-time.Hour)))
	require.NoError(t, store.RevokeToken(ctx, f.db, "live", time.Now().Add(time.Hour)))

	n, err := New(f.db, "", nil).PurgeTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	revoked, err := store.IsTokenRevoked(ctx, f.db, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestStartRejectsBadSpec(t *testing.T) {
	f := setup(t)
	s := New(f.db, "every now and then", nil)
	assert.Error(t, s.Start())

	s = New(f.db, "", nil)
	require.NoError(t, s.Start())
	s.Stop()
}
