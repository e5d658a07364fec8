package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Branch is a physical store owned by a company, with its own stock and branding.
type Branch struct {
	ID             int64           `json:"id"`
	CompanyID      int64           `json:"company_id"`
	Name           string          `json:"name"`
	Address        string          `json:"address,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Currency       string          `json:"currency"`
	PrimaryColor   string          `json:"primary_color,omitempty"`
	SecondaryColor string          `json:"secondary_color,omitempty"`
	HasLogo        bool            `json:"has_logo"`
	HasFavicon     bool            `json:"has_favicon"`
	CreatedAt      time.Time       `json:"created_at"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
}

// Theme is the branding a client applies while working in a branch.
type Theme struct {
	BranchID       int64           `json:"branch_id"`
	DisplayName    string          `json:"display_name"`
	PrimaryColor   string          `json:"primary_color"`
	SecondaryColor string          `json:"secondary_color"`
	LogoURL        string          `json:"logo_url,omitempty"`
	FaviconURL     string          `json:"favicon_url,omitempty"`
	Currency       string          `json:"currency"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
}

// Default branding colours.
const (
	DefaultPrimaryColor   = "#2563EB"
	DefaultSecondaryColor = "#64748B"
	DefaultCurrency       = "EUR"
)
