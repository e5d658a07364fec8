package model

import (
	"slices"
	"time"
)

// Role is a named set of permission codes defined by a company.
type Role struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Permission describes one permission code.
type Permission struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Permission codes.
const (
	PermBranchesManage  = "branches.manage"
	PermUsersManage     = "users.manage"
	PermRolesManage     = "roles.manage"
	PermProductsView    = "products.view"
	PermProductsManage  = "products.manage"
	PermInventoryView   = "inventory.view"
	PermInventoryManage = "inventory.manage"
	PermSalesCreate     = "sales.create"
	PermSalesView       = "sales.view"
	PermSalesVoid       = "sales.void"
	PermShiftsManage    = "shifts.manage"
	PermSuppliersManage = "suppliers.manage"
	PermPurchasesManage = "purchases.manage"
	PermReportsView     = "reports.view"
	PermAlertsView      = "alerts.view"
	PermSettingsManage  = "settings.manage"
)

// Permissions is the full permission catalog.
var Permissions = []Permission{
	{PermBranchesManage, "Create and edit branches and their branding"},
	{PermUsersManage, "Create and edit users"},
	{PermRolesManage, "Create and edit roles"},
	{PermProductsView, "View products and categories"},
	{PermProductsManage, "Create and edit products and categories"},
	{PermInventoryView, "View stock levels and movements"},
	{PermInventoryManage, "Record stock movements"},
	{PermSalesCreate, "Ring up sales"},
	{PermSalesView, "View sales"},
	{PermSalesVoid, "Void sales"},
	{PermShiftsManage, "Open and close shifts"},
	{PermSuppliersManage, "Manage suppliers"},
	{PermPurchasesManage, "Manage purchase orders"},
	{PermReportsView, "View reports"},
	{PermAlertsView, "View alerts and the activity feed"},
	{PermSettingsManage, "Manage company settings"},
}

// IsPermission reports whether code is in the permission catalog.
func IsPermission(code string) bool {
	return slices.ContainsFunc(Permissions, func(p Permission) bool { return p.Code == code })
}
