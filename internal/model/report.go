package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary aggregates completed sales over a period.
type SalesSummary struct {
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	BranchID    *int64          `json:"branch_id,omitempty"`
	Count       int             `json:"count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	CashTotal   decimal.Decimal `json:"cash_total"`
	CardTotal   decimal.Decimal `json:"card_total"`
	AverageSale decimal.Decimal `json:"average_sale"`
	VoidedCount int             `json:"voided_count"`
}

// TopProduct is one row of the best sellers report.
type TopProduct struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// InventoryValue is the stock valuation of one branch.
type InventoryValue struct {
	BranchID    int64           `json:"branch_id"`
	BranchName  string          `json:"branch_name"`
	Units       int             `json:"units"`
	CostValue   decimal.Decimal `json:"cost_value"`
	RetailValue decimal.Decimal `json:"retail_value"`
}

// ReportPeriod narrows report endpoints.
type ReportPeriod struct {
	BranchID int64
	From     time.Time
	To       time.Time
	Limit    int
}
