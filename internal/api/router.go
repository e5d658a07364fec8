package api

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/model"
)

// Config holds the router dependencies.
type Config struct {
	Issuer *auth.Issuer
	Logger *zap.Logger

	// LoginRate and LoginBurst limit login attempts per client IP.
	// A zero rate disables the limit.
	LoginRate  rate.Limit
	LoginBurst int

	// Registry receives the HTTP metrics and is served on /metrics.
	// Defaults to a fresh registry.
	Registry *prometheus.Registry
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Log: log, Issuer: cfg.Issuer}
	companiesHandler := &CompaniesHandler{DB: db, Log: log}
	branchesHandler := &BranchesHandler{DB: db, Log: log}
	usersHandler := &UsersHandler{DB: db, Log: log}
	catalogHandler := &CatalogHandler{DB: db, Log: log}
	inventoryHandler := &InventoryHandler{DB: db, Log: log}
	salesHandler := &SalesHandler{DB: db, Log: log}
	purchasingHandler := &PurchasingHandler{DB: db, Log: log}
	reportsHandler := &ReportsHandler{DB: db, Log: log}
	alertsHandler := &AlertsHandler{DB: db, Log: log}

	authMW := AuthMiddleware(cfg.Issuer, db, log)
	platform := RequirePlatformAdmin
	company := RequireCompany
	perm := RequirePermission

	// route registers an authenticated endpoint behind the given guard.
	route := func(pattern string, guard middleware, h http.HandlerFunc) {
		var next http.Handler = h
		if guard != nil {
			next = guard(next)
		}
		mux.Handle(pattern, authMW(next))
	}

	// Public.
	login := http.Handler(http.HandlerFunc(authHandler.Login))
	if cfg.LoginRate > 0 {
		login = newIPLimiter(cfg.LoginRate, max(cfg.LoginBurst, 1)).middleware(login)
	}
	mux.Handle("POST /api/auth/login/{$}", login)
	mux.HandleFunc("POST /api/auth/refresh/{$}", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout/{$}", authHandler.Logout)
	mux.HandleFunc("GET /healthz", healthz(db))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// Any authenticated user.
	route("GET /api/auth/me/{$}", nil, authHandler.Me)
	route("PUT /api/auth/password/{$}", nil, authHandler.ChangePassword)
	route("GET /api/permissions/{$}", nil, usersHandler.ListPermissions)

	// Platform administration.
	route("GET /api/companies/{$}", platform, companiesHandler.List)
	route("POST /api/companies/{$}", platform, companiesHandler.Create)
	route("GET /api/companies/{id}/{$}", platform, companiesHandler.Get)
	route("PUT /api/companies/{id}/{$}", platform, companiesHandler.Update)
	route("DELETE /api/companies/{id}/{$}", platform, companiesHandler.Delete)
	route("GET /api/subscriptions/{$}", platform, companiesHandler.ListSubscriptions)
	route("POST /api/subscriptions/{$}", platform, companiesHandler.CreateSubscription)
	route("GET /api/subscriptions/platform_usage/{$}", platform, companiesHandler.PlatformUsage)
	route("GET /api/subscriptions/{id}/{$}", platform, companiesHandler.GetSubscription)
	route("PUT /api/subscriptions/{id}/{$}", platform, companiesHandler.UpdateSubscription)

	// Branches: read (company users), write (branches.manage).
	route("GET /api/branches/{$}", company, branchesHandler.List)
	route("POST /api/branches/{$}", perm(model.PermBranchesManage), branchesHandler.Create)
	route("GET /api/branches/{id}/{$}", company, branchesHandler.Get)
	route("PUT /api/branches/{id}/{$}", perm(model.PermBranchesManage), branchesHandler.Update)
	route("DELETE /api/branches/{id}/{$}", perm(model.PermBranchesManage), branchesHandler.Delete)
	route("POST /api/branches/{id}/branding/{$}", perm(model.PermBranchesManage), branchesHandler.UpdateBranding)
	route("GET /api/branches/{id}/theme/{$}", company, branchesHandler.Theme)
	route("GET /api/branches/{id}/logo/{$}", company, branchesHandler.Logo)
	route("GET /api/branches/{id}/favicon/{$}", company, branchesHandler.Favicon)

	// Users: platform admins and users.manage.
	manageUsers := RequirePlatformOr(model.PermUsersManage)
	route("GET /api/users/{$}", manageUsers, usersHandler.List)
	route("POST /api/users/{$}", manageUsers, usersHandler.Create)
	route("GET /api/users/{id}/{$}", manageUsers, usersHandler.Get)
	route("PUT /api/users/{id}/{$}", manageUsers, usersHandler.Update)
	route("DELETE /api/users/{id}/{$}", manageUsers, usersHandler.Delete)
	route("PUT /api/users/{id}/password/{$}", manageUsers, usersHandler.ResetPassword)

	// Roles: read (company users), write (roles.manage).
	route("GET /api/roles/{$}", company, usersHandler.ListRoles)
	route("POST /api/roles/{$}", perm(model.PermRolesManage), usersHandler.CreateRole)
	route("GET /api/roles/{id}/{$}", company, usersHandler.GetRole)
	route("PUT /api/roles/{id}/{$}", perm(model.PermRolesManage), usersHandler.UpdateRole)
	route("DELETE /api/roles/{id}/{$}", perm(model.PermRolesManage), usersHandler.DeleteRole)

	// Catalog: read (products.view), write (products.manage).
	view, manage := perm(model.PermProductsView), perm(model.PermProductsManage)
	route("GET /api/categories/{$}", view, catalogHandler.ListCategories)
	route("POST /api/categories/{$}", manage, catalogHandler.CreateCategory)
	route("PUT /api/categories/{id}/{$}", manage, catalogHandler.UpdateCategory)
	route("DELETE /api/categories/{id}/{$}", manage, catalogHandler.DeleteCategory)
	route("GET /api/products/{$}", view, catalogHandler.ListProducts)
	route("POST /api/products/{$}", manage, catalogHandler.CreateProduct)
	route("GET /api/products/barcode/{code}/{$}", view, catalogHandler.GetByBarcode)
	route("GET /api/products/{id}/{$}", view, catalogHandler.GetProduct)
	route("PUT /api/products/{id}/{$}", manage, catalogHandler.UpdateProduct)
	route("DELETE /api/products/{id}/{$}", manage, catalogHandler.DeleteProduct)
	route("POST /api/products/{id}/image/{$}", manage, catalogHandler.UploadImage)
	// No trailing slash: /products/barcode/{code}/ already owns that shape.
	route("GET /api/products/{id}/image", view, catalogHandler.GetImage)

	// Inventory: read (inventory.view), write (inventory.manage).
	route("GET /api/inventory/{$}", perm(model.PermInventoryView), inventoryHandler.List)
	route("GET /api/inventory/low_stock/{$}", perm(model.PermInventoryView), inventoryHandler.LowStock)
	route("GET /api/inventory/movements/{$}", perm(model.PermInventoryView), inventoryHandler.ListMovements)
	route("POST /api/inventory/movements/{$}", perm(model.PermInventoryManage), inventoryHandler.CreateMovement)

	// Sales and shifts.
	route("GET /api/sales/{$}", perm(model.PermSalesView), salesHandler.List)
	route("POST /api/sales/{$}", perm(model.PermSalesCreate), salesHandler.Create)
	route("GET /api/sales/{id}/{$}", perm(model.PermSalesView), salesHandler.Get)
	route("POST /api/sales/{id}/void/{$}", perm(model.PermSalesVoid), salesHandler.Void)
	route("GET /api/shifts/{$}", perm(model.PermShiftsManage), salesHandler.ListShifts)
	route("GET /api/shifts/current/{$}", perm(model.PermShiftsManage), salesHandler.CurrentShift)
	route("POST /api/shifts/open/{$}", perm(model.PermShiftsManage), salesHandler.OpenShift)
	route("POST /api/shifts/{id}/close/{$}", perm(model.PermShiftsManage), salesHandler.CloseShift)

	// Purchasing.
	suppliers, orders := perm(model.PermSuppliersManage), perm(model.PermPurchasesManage)
	route("GET /api/suppliers/{$}", suppliers, purchasingHandler.ListSuppliers)
	route("POST /api/suppliers/{$}", suppliers, purchasingHandler.CreateSupplier)
	route("GET /api/suppliers/{id}/{$}", suppliers, purchasingHandler.GetSupplier)
	route("PUT /api/suppliers/{id}/{$}", suppliers, purchasingHandler.UpdateSupplier)
	route("DELETE /api/suppliers/{id}/{$}", suppliers, purchasingHandler.DeleteSupplier)
	route("GET /api/purchase_orders/{$}", orders, purchasingHandler.ListOrders)
	route("POST /api/purchase_orders/{$}", orders, purchasingHandler.CreateOrder)
	route("GET /api/purchase_orders/{id}/{$}", orders, purchasingHandler.GetOrder)
	route("POST /api/purchase_orders/{id}/receive/{$}", orders, purchasingHandler.ReceiveOrder)
	route("POST /api/purchase_orders/{id}/cancel/{$}", orders, purchasingHandler.CancelOrder)

	// Reports.
	route("GET /api/reports/sales_summary/{$}", perm(model.PermReportsView), reportsHandler.SalesSummary)
	route("GET /api/reports/top_products/{$}", perm(model.PermReportsView), reportsHandler.TopProducts)
	route("GET /api/reports/inventory_value/{$}", perm(model.PermReportsView), reportsHandler.InventoryValue)

	// Alerts, activity and user reports.
	route("GET /api/alerts/{$}", perm(model.PermAlertsView), alertsHandler.List)
	route("POST /api/alerts/read_all/{$}", perm(model.PermAlertsView), alertsHandler.MarkAllRead)
	route("GET /api/alerts/activity/{$}", perm(model.PermAlertsView), alertsHandler.Activity)
	route("POST /api/alerts/{id}/read/{$}", perm(model.PermAlertsView), alertsHandler.MarkRead)
	route("GET /api/user_reports/{$}", nil, alertsHandler.ListUserReports)
	route("POST /api/user_reports/{$}", nil, alertsHandler.CreateUserReport)
	route("PATCH /api/user_reports/{id}/{$}", platform, alertsHandler.UpdateUserReport)

	var h http.Handler = mux
	h = newMetrics(reg).middleware(h)
	h = LoggingMiddleware(log)(h)
	h = RequestIDMiddleware(h)
	return h
}

// healthz reports whether the database answers.
func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
