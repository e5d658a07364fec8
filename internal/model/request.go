package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateCompanyRequest is the body of POST /companies/. When AdminUsername
// is set the company's first admin account is created with it.
type CreateCompanyRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	TaxID         string `json:"tax_id,omitempty" validate:"max=50"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string `json:"phone,omitempty" validate:"max=50"`
	Plan          string `json:"plan,omitempty" validate:"omitempty,oneof=basic pro enterprise"`
	AdminUsername string `json:"admin_username,omitempty" validate:"omitempty,min=3,max=50"`
	AdminPassword string `json:"admin_password,omitempty" validate:"required_with=AdminUsername"`
}

// UpdateCompanyRequest is the body of PUT /companies/{id}/.
type UpdateCompanyRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	TaxID  string `json:"tax_id,omitempty" validate:"max=50"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Phone  string `json:"phone,omitempty" validate:"max=50"`
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

// SubscriptionRequest is the body of POST /subscriptions/ and
// PUT /subscriptions/{id}/. Nil limits take the plan defaults.
type SubscriptionRequest struct {
	CompanyID    int64           `json:"company_id" validate:"required,gt=0"`
	Plan         string          `json:"plan" validate:"required,oneof=basic pro enterprise"`
	Status       string          `json:"status" validate:"required,oneof=trial active past_due cancelled"`
	MaxBranches  *int            `json:"max_branches,omitempty" validate:"omitempty,min=0"`
	MaxUsers     *int            `json:"max_users,omitempty" validate:"omitempty,min=0"`
	MaxProducts  *int            `json:"max_products,omitempty" validate:"omitempty,min=0"`
	PriceMonthly decimal.Decimal `json:"price_monthly"`
	StartsAt     *time.Time      `json:"starts_at,omitempty"`
	EndsAt       *time.Time      `json:"ends_at,omitempty"`
}

// BranchRequest is the body of POST /branches/ and PUT /branches/{id}/.
type BranchRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Address        string          `json:"address,omitempty" validate:"max=300"`
	Phone          string          `json:"phone,omitempty" validate:"max=50"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Currency       string          `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	PrimaryColor   string          `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor string          `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
}

// CreateUserRequest is the body of POST /users/. Platform admins creating
// a company user must set CompanyID.
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required"`
	FullName  string `json:"full_name,omitempty" validate:"max=200"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	CompanyID *int64 `json:"company_id,omitempty"`
	BranchID  *int64 `json:"branch_id,omitempty"`
	RoleID    *int64 `json:"role_id,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

// UpdateUserRequest is the body of PUT /users/{id}/.
type UpdateUserRequest struct {
	FullName string `json:"full_name,omitempty" validate:"max=200"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	BranchID *int64 `json:"branch_id,omitempty"`
	RoleID   *int64 `json:"role_id,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

// ResetPasswordRequest is the body of PUT /users/{id}/password/.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// RoleRequest is the body of POST /roles/ and PUT /roles/{id}/.
type RoleRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Permissions []string `json:"permissions"`
}

// CategoryRequest is the body of POST /categories/ and PUT /categories/{id}/.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// ProductRequest is the body of POST /products/ and PUT /products/{id}/.
// A nil Active means true.
type ProductRequest struct {
	CategoryID  *int64          `json:"category_id,omitempty"`
	SKU         string          `json:"sku" validate:"required,max=64"`
	Barcode     string          `json:"barcode,omitempty" validate:"max=64"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description,omitempty" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	MinStock    int             `json:"min_stock" validate:"min=0"`
	Active      *bool           `json:"active,omitempty"`
}

// SupplierRequest is the body of POST /suppliers/ and PUT /suppliers/{id}/.
type SupplierRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	ContactName string `json:"contact_name,omitempty" validate:"max=200"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty" validate:"max=50"`
	Address     string `json:"address,omitempty" validate:"max=300"`
	TaxID       string `json:"tax_id,omitempty" validate:"max=50"`
}

// OpenShiftRequest is the body of POST /shifts/open/.
type OpenShiftRequest struct {
	BranchID    int64           `json:"branch_id" validate:"required,gt=0"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

// CloseShiftRequest is the body of POST /shifts/{id}/close/.
type CloseShiftRequest struct {
	ClosingCash decimal.Decimal `json:"closing_cash"`
	Notes       string          `json:"notes,omitempty" validate:"max=500"`
}

// UserReportRequest is the body of POST /user_reports/.
type UserReportRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=bug suggestion other"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=5000"`
}

// UserReportStatusRequest is the body of PATCH /user_reports/{id}/.
type UserReportStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open reviewed resolved"`
}

// MovementFilter narrows GET /inventory/movements/.
type MovementFilter struct {
	BranchID  int64
	ProductID int64
	Type      string
	Limit     int
}

// AlertFilter narrows GET /alerts/.
type AlertFilter struct {
	BranchID   int64
	UnreadOnly bool
	Limit      int
}
