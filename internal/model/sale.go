package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a completed point-of-sale transaction.
type Sale struct {
	ID            int64           `json:"id"`
	CompanyID     int64           `json:"company_id"`
	BranchID      int64           `json:"branch_id"`
	ShiftID       *int64          `json:"shift_id,omitempty"`
	UserID        int64           `json:"user_id"`
	Receipt       string          `json:"receipt"`
	PaymentMethod string          `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Change        decimal.Decimal `json:"change"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	VoidedAt      *time.Time      `json:"voided_at,omitempty"`
	Items         []SaleItem      `json:"items,omitempty"`

	// Joined fields (not always populated).
	BranchName string `json:"branch_name,omitempty"`
	Cashier    string `json:"cashier,omitempty"`
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Payment methods.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

// Sale statuses.
const (
	SaleCompleted = "completed"
	SaleVoided    = "voided"
)

// CreateSaleRequest is the body of POST /sales/.
type CreateSaleRequest struct {
	BranchID      int64             `json:"branch_id" validate:"required,gt=0"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card"`
	Discount      decimal.Decimal   `json:"discount"`
	Paid          decimal.Decimal   `json:"paid"`
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// SaleItemRequest is one requested sale line. Lines are always sold at the
// catalog price.
type SaleItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// SaleFilter narrows GET /sales/.
type SaleFilter struct {
	BranchID int64
	UserID   int64
	From     time.Time
	To       time.Time
	Status   string
	Limit    int
}

// ComputeTotals applies a discount and a tax rate (a fraction, 0.22 for
// 22%) to a subtotal. Prices are tax exclusive. The discount is clamped to
// [0, subtotal] and tax is rounded to cents.
func ComputeTotals(subtotal, discount, taxRate decimal.Decimal) (net, tax, total decimal.Decimal) {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	net = subtotal.Sub(discount)
	tax = net.Mul(taxRate).Round(2)
	return net, tax, net.Add(tax)
}
