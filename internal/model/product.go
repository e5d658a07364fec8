package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products within a company.
type Category struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product is a sellable catalog entry (quantity-based, not individual tracking).
type Product struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"company_id"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	SKU         string          `json:"sku"`
	Barcode     string          `json:"barcode,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	MinStock    int             `json:"min_stock"`
	Active      bool            `json:"active"`
	ImageMime   string          `json:"image_mime,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
	Stock        *int   `json:"stock,omitempty"`
}

// Stock is the quantity of a product held by a branch.
type Stock struct {
	BranchID  int64 `json:"branch_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`

	// Joined fields (not always populated).
	BranchName  string `json:"branch_name,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	SKU         string `json:"sku,omitempty"`
	MinStock    int    `json:"min_stock,omitempty"`
}

// Low reports whether the quantity is at or below the product's minimum.
func (s Stock) Low() bool {
	return s.Quantity <= s.MinStock
}

// StockMovement records one change to a branch's stock.
type StockMovement struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	BranchID  int64     `json:"branch_id"`
	ProductID int64     `json:"product_id"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	Reference string    `json:"reference,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy *int64    `json:"created_by,omitempty"`

	// Joined fields (not always populated).
	ProductName string `json:"product_name,omitempty"`
	BranchName  string `json:"branch_name,omitempty"`
}

// Movement types. Quantity is signed: positive adds stock, negative removes it.
const (
	MovementIn       = "in"
	MovementOut      = "out"
	MovementAdjust   = "adjust"
	MovementTransfer = "transfer"
	MovementSale     = "sale"
	MovementPurchase = "purchase"
	MovementVoid     = "void"
)

// CreateMovementRequest is the body of POST /inventory/movements/.
// Transfers move Quantity from BranchID to ToBranchID.
type CreateMovementRequest struct {
	BranchID   int64  `json:"branch_id" validate:"required,gt=0"`
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	Type       string `json:"type" validate:"required,oneof=in out adjust transfer"`
	Quantity   int    `json:"quantity" validate:"required,ne=0"`
	ToBranchID int64  `json:"to_branch_id,omitempty" validate:"required_if=Type transfer"`
	Reference  string `json:"reference,omitempty" validate:"max=100"`
	Notes      string `json:"notes,omitempty" validate:"max=500"`
}

// ProductFilter narrows GET /products/.
type ProductFilter struct {
	Search     string
	Barcode    string
	CategoryID int64
	BranchID   int64
	ActiveOnly bool
}
