package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// PurchasingHandler handles supplier and purchase order endpoints.
type PurchasingHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// ListSuppliers handles GET /api/suppliers/.
func (h *PurchasingHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := store.ListSuppliers(r.Context(), h.DB, GetClaims(r.Context()).Company())
	if err != nil {
		storeError(w, h.Log, err, "list suppliers")
		return
	}
	jsonList(w, suppliers)
}

// GetSupplier handles GET /api/suppliers/{id}/.
func (h *PurchasingHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.supplier(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, supplier)
}

// CreateSupplier handles POST /api/suppliers/.
func (h *PurchasingHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req model.SupplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	supplier, err := store.CreateSupplier(r.Context(), h.DB, GetClaims(r.Context()).Company(), req)
	if err != nil {
		storeError(w, h.Log, err, "create supplier")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionCreated, "supplier", supplier.ID, "Added supplier %s", supplier.Name)
	jsonResponse(w, http.StatusCreated, supplier)
}

// UpdateSupplier handles PUT /api/suppliers/{id}/.
func (h *PurchasingHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.supplier(w, r)
	if !ok {
		return
	}
	var req model.SupplierRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := store.UpdateSupplier(r.Context(), h.DB, supplier.CompanyID, supplier.ID, req); err != nil {
		storeError(w, h.Log, err, "update supplier")
		return
	}
	updated, err := store.GetSupplier(r.Context(), h.DB, supplier.CompanyID, supplier.ID)
	if err != nil {
		storeError(w, h.Log, err, "update supplier")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// DeleteSupplier handles DELETE /api/suppliers/{id}/.
func (h *PurchasingHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.supplier(w, r)
	if !ok {
		return
	}
	if err := store.DeleteSupplier(r.Context(), h.DB, supplier.CompanyID, supplier.ID); err != nil {
		storeError(w, h.Log, err, "delete supplier")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionDeleted, "supplier", supplier.ID, "Removed supplier %s", supplier.Name)
	message(w, "supplier deleted")
}

func (h *PurchasingHandler) supplier(w http.ResponseWriter, r *http.Request) (*model.Supplier, bool) {
	id, ok := pathID(w, r, "supplier")
	if !ok {
		return nil, false
	}
	supplier, err := store.GetSupplier(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get supplier")
		return nil, false
	}
	if supplier == nil {
		notFound(w, "supplier")
		return nil, false
	}
	return supplier, true
}

// ListOrders handles GET /api/purchase_orders/?status=.
func (h *PurchasingHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if err := validate.Var(status, "omitempty,oneof=draft ordered received cancelled"); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}
	orders, err := store.ListPurchaseOrders(r.Context(), h.DB, GetClaims(r.Context()).Company(), status)
	if err != nil {
		storeError(w, h.Log, err, "list purchase orders")
		return
	}
	jsonList(w, orders)
}

// GetOrder handles GET /api/purchase_orders/{id}/.
func (h *PurchasingHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "purchase order")
	if !ok {
		return
	}
	order, err := store.GetPurchaseOrder(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get purchase order")
		return
	}
	if order == nil {
		notFound(w, "purchase order")
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// CreateOrder handles POST /api/purchase_orders/.
func (h *PurchasingHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.CreatePurchaseOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for _, item := range req.Items {
		if item.UnitCost.IsNegative() {
			jsonError(w, http.StatusBadRequest, "unit cost cannot be negative")
			return
		}
	}

	order, err := store.CreatePurchaseOrder(r.Context(), h.DB, claims.Company(), &claims.UserID, req)
	if err != nil {
		storeError(w, h.Log, err, "create purchase order")
		return
	}

	recordActivity(r, h.DB, h.Log, store.ActionCreated, "purchase_order", order.ID,
		"Created purchase order %d for %s (%s)", order.ID, order.SupplierName, order.Total.StringFixed(2))
	jsonResponse(w, http.StatusCreated, order)
}

// ReceiveOrder handles POST /api/purchase_orders/{id}/receive/.
func (h *PurchasingHandler) ReceiveOrder(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := pathID(w, r, "purchase order")
	if !ok {
		return
	}

	order, err := store.ReceivePurchaseOrder(r.Context(), h.DB, claims.Company(), &claims.UserID, id)
	if err != nil {
		storeError(w, h.Log, err, "receive purchase order")
		return
	}

	h.Log.Info("purchase order received", zap.String("user", claims.Username), zap.Int64("order", order.ID))
	jsonResponse(w, http.StatusOK, order)
}

// CancelOrder handles POST /api/purchase_orders/{id}/cancel/.
func (h *PurchasingHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "purchase order")
	if !ok {
		return
	}

	order, err := store.CancelPurchaseOrder(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "cancel purchase order")
		return
	}

	recordActivity(r, h.DB, h.Log, store.ActionCancelled, "purchase_order", order.ID,
		"Cancelled purchase order %d", order.ID)
	jsonResponse(w, http.StatusOK, order)
}
