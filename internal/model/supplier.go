package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a vendor the company buys stock from.
type Supplier struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	Name        string     `json:"name"`
	ContactName string     `json:"contact_name,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	TaxID       string     `json:"tax_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// PurchaseOrder is an order of stock from a supplier into a branch.
type PurchaseOrder struct {
	ID         int64               `json:"id"`
	CompanyID  int64               `json:"company_id"`
	SupplierID int64               `json:"supplier_id"`
	BranchID   int64               `json:"branch_id"`
	Status     string              `json:"status"`
	Total      decimal.Decimal     `json:"total"`
	Notes      string              `json:"notes,omitempty"`
	ExpectedAt *time.Time          `json:"expected_at,omitempty"`
	ReceivedAt *time.Time          `json:"received_at,omitempty"`
	CreatedBy  *int64              `json:"created_by,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	Items      []PurchaseOrderItem `json:"items,omitempty"`

	// Joined fields (not always populated).
	SupplierName string `json:"supplier_name,omitempty"`
	BranchName   string `json:"branch_name,omitempty"`
}

// PurchaseOrderItem is one line of a purchase order.
type PurchaseOrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// Purchase order statuses.
const (
	OrderDraft     = "draft"
	OrderOrdered   = "ordered"
	OrderReceived  = "received"
	OrderCancelled = "cancelled"
)

// CreatePurchaseOrderRequest is the body of POST /purchase_orders/.
type CreatePurchaseOrderRequest struct {
	SupplierID int64                      `json:"supplier_id" validate:"required,gt=0"`
	BranchID   int64                      `json:"branch_id" validate:"required,gt=0"`
	Status     string                     `json:"status,omitempty" validate:"omitempty,oneof=draft ordered"`
	Notes      string                     `json:"notes,omitempty" validate:"max=500"`
	ExpectedAt *time.Time                 `json:"expected_at,omitempty"`
	Items      []PurchaseOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PurchaseOrderItemRequest is one requested purchase order line.
type PurchaseOrderItemRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}
