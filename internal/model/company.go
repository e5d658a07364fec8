package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is a tenant of the platform.
type Company struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	TaxID     string     `json:"tax_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Company statuses.
const (
	CompanyStatusActive    = "active"
	CompanyStatusSuspended = "suspended"
)

// Subscription is a company's plan and its usage limits.
type Subscription struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	Plan         string          `json:"plan"`
	Status       string          `json:"status"`
	MaxBranches  int             `json:"max_branches"`
	MaxUsers     int             `json:"max_users"`
	MaxProducts  int             `json:"max_products"`
	PriceMonthly decimal.Decimal `json:"price_monthly"`
	StartsAt     time.Time       `json:"starts_at"`
	EndsAt       *time.Time      `json:"ends_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	CompanyName string `json:"company_name,omitempty"`
}

// Plans.
const (
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Subscription statuses.
const (
	SubscriptionTrial     = "trial"
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
)

// PlanLimits returns the default limits for a plan. Zero means unlimited.
func PlanLimits(plan string) (branches, users, products int) {
	switch plan {
	case PlanBasic:
		return 1, 5, 500
	case PlanPro:
		return 5, 25, 5000
	default:
		return 0, 0, 0
	}
}

// Usage is one resource's consumption against its limit.
type Usage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// Exceeded reports whether one more unit would break the limit.
func (u Usage) Exceeded() bool {
	return u.Limit > 0 && u.Used >= u.Limit
}

// CompanyUsage is one row of the platform usage report.
type CompanyUsage struct {
	CompanyID   int64           `json:"company_id"`
	CompanyName string          `json:"company_name"`
	Status      string          `json:"status"`
	Plan        string          `json:"plan,omitempty"`
	PlanStatus  string          `json:"plan_status,omitempty"`
	Branches    Usage           `json:"branches"`
	Users       Usage           `json:"users"`
	Products    Usage           `json:"products"`
	Sales30d    int             `json:"sales_30d"`
	Revenue30d  decimal.Decimal `json:"revenue_30d"`
}
