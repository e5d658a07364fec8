package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// InventoryHandler handles stock endpoints.
type InventoryHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// List handles GET /api/inventory/?branch_id=.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := queryInt64(r, "branch_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	stock, err := store.ListStock(r.Context(), h.DB, GetClaims(r.Context()).Company(), branchID)
	if err != nil {
		storeError(w, h.Log, err, "list inventory")
		return
	}
	jsonList(w, stock)
}

// LowStock handles GET /api/inventory/low_stock/?branch_id=.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	branchID, err := queryInt64(r, "branch_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	stock, err := store.LowStock(r.Context(), h.DB, GetClaims(r.Context()).Company(), branchID)
	if err != nil {
		storeError(w, h.Log, err, "list low stock")
		return
	}
	jsonList(w, stock)
}

// ListMovements handles GET /api/inventory/movements/?branch_id=&product_id=&type=&limit=.
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	q := &queryParser{r: r}
	f := model.MovementFilter{
		BranchID:  q.int64("branch_id"),
		ProductID: q.int64("product_id"),
		Type:      r.URL.Query().Get("type"),
		Limit:     q.int("limit"),
	}
	if q.err != nil {
		jsonError(w, http.StatusBadRequest, q.err.Error())
		return
	}

	movements, err := store.ListMovements(r.Context(), h.DB, GetClaims(r.Context()).Company(), f)
	if err != nil {
		storeError(w, h.Log, err, "list movements")
		return
	}
	jsonList(w, movements)
}

// CreateMovement handles POST /api/inventory/movements/. A transfer returns
// both legs.
func (h *InventoryHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.CreateMovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	movements, err := store.CreateMovement(r.Context(), h.DB, claims.Company(), &claims.UserID, req)
	if err != nil {
		storeError(w, h.Log, err, "record movement")
		return
	}

	h.Log.Info("stock moved", zap.String("user", claims.Username), zap.String("type", req.Type),
		zap.Int64("product", req.ProductID), zap.Int64("branch", req.BranchID), zap.Int("quantity", req.Quantity))
	first := movements[0]
	recordActivity(r, h.DB, h.Log, store.ActionMoved, "product", req.ProductID,
		"Recorded %s of %d × %s", req.Type, req.Quantity, first.ProductName)
	jsonResponse(w, http.StatusCreated, movements)
}
