package model

import "time"

// Alert is a notification raised for a company, optionally scoped to a branch.
type Alert struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"company_id"`
	BranchID  *int64     `json:"branch_id,omitempty"`
	Type      string     `json:"type"`
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	Reference string     `json:"reference,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Alert types.
const (
	AlertLowStock             = "low_stock"
	AlertOutOfStock           = "out_of_stock"
	AlertSubscriptionExpiring = "subscription_expiring"
	AlertOrderOverdue         = "po_overdue"
)

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// ActivityLog is one entry of a company's activity feed.
type ActivityLog struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  *int64    `json:"entity_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields (not always populated).
	Username string `json:"username,omitempty"`
}

// UserReport is feedback submitted by a user (bug report, suggestion).
type UserReport struct {
	ID        int64     `json:"id"`
	CompanyID *int64    `json:"company_id,omitempty"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	Username string `json:"username,omitempty"`
}

// User report kinds and statuses.
const (
	ReportBug        = "bug"
	ReportSuggestion = "suggestion"
	ReportOther      = "other"

	ReportOpen     = "open"
	ReportReviewed = "reviewed"
	ReportResolved = "resolved"
)
