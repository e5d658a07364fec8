package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shift is a cashier's working session at a branch.
type Shift struct {
	ID           int64            `json:"id"`
	CompanyID    int64            `json:"company_id"`
	BranchID     int64            `json:"branch_id"`
	UserID       int64            `json:"user_id"`
	Status       string           `json:"status"`
	OpeningCash  decimal.Decimal  `json:"opening_cash"`
	ClosingCash  *decimal.Decimal `json:"closing_cash,omitempty"`
	ExpectedCash *decimal.Decimal `json:"expected_cash,omitempty"`
	Difference   *decimal.Decimal `json:"difference,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	OpenedAt     time.Time        `json:"opened_at"`
	ClosedAt     *time.Time       `json:"closed_at,omitempty"`

	// Joined fields (not always populated).
	Username   string `json:"username,omitempty"`
	BranchName string `json:"branch_name,omitempty"`
}

// Shift statuses.
const (
	ShiftOpen   = "open"
	ShiftClosed = "closed"
)
