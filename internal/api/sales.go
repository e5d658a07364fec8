package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// SalesHandler handles sale and shift endpoints.
type SalesHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// List handles GET /api/sales/?branch_id=&user_id=&from=&to=&status=&limit=.
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := &queryParser{r: r}
	f := model.SaleFilter{
		BranchID: q.int64("branch_id"),
		UserID:   q.int64("user_id"),
		From:     q.time("from"),
		To:       q.time("to"),
		Status:   r.URL.Query().Get("status"),
		Limit:    q.int("limit"),
	}
	if q.err != nil {
		jsonError(w, http.StatusBadRequest, q.err.Error())
		return
	}

	sales, err := store.ListSales(r.Context(), h.DB, GetClaims(r.Context()).Company(), f)
	if err != nil {
		storeError(w, h.Log, err, "list sales")
		return
	}
	jsonList(w, sales)
}

// Get handles GET /api/sales/{id}/.
func (h *SalesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "sale")
	if !ok {
		return
	}
	sale, err := store.GetSale(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get sale")
		return
	}
	if sale == nil {
		notFound(w, "sale")
		return
	}
	jsonResponse(w, http.StatusOK, sale)
}

// Create handles POST /api/sales/.
func (h *SalesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.CreateSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sale, err := store.CreateSale(r.Context(), h.DB, claims.Company(), claims.UserID, req)
	if err != nil {
		storeError(w, h.Log, err, "create sale")
		return
	}

	h.Log.Info("sale completed", zap.String("user", claims.Username), zap.String("receipt", sale.Receipt),
		zap.Stringer("total", sale.Total), zap.String("method", sale.PaymentMethod))
	jsonResponse(w, http.StatusCreated, sale)
}

// Void handles POST /api/sales/{id}/void/.
func (h *SalesHandler) Void(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := pathID(w, r, "sale")
	if !ok {
		return
	}

	sale, err := store.VoidSale(r.Context(), h.DB, claims.Company(), claims.UserID, id)
	if err != nil {
		storeError(w, h.Log, err, "void sale")
		return
	}

	h.Log.Info("sale voided", zap.String("user", claims.Username), zap.String("receipt", sale.Receipt))
	jsonResponse(w, http.StatusOK, sale)
}

// ListShifts handles GET /api/shifts/?branch_id=. Users without sales.view
// see only their own shifts.
func (h *SalesHandler) ListShifts(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	q := &queryParser{r: r}
	branchID, n := q.int64("branch_id"), q.int("limit")
	if q.err != nil {
		jsonError(w, http.StatusBadRequest, q.err.Error())
		return
	}

	var userID int64
	if !claims.Can(model.PermSalesView) {
		userID = claims.UserID
	}
	shifts, err := store.ListShifts(r.Context(), h.DB, claims.Company(), branchID, userID, n)
	if err != nil {
		storeError(w, h.Log, err, "list shifts")
		return
	}
	jsonList(w, shifts)
}

// CurrentShift handles GET /api/shifts/current/. It answers 204 when the
// caller has no open shift.
func (h *SalesHandler) CurrentShift(w http.ResponseWriter, r *http.Request) {
	shift, err := store.CurrentShift(r.Context(), h.DB, GetClaims(r.Context()).UserID)
	if err != nil {
		storeError(w, h.Log, err, "get current shift")
		return
	}
	if shift == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	jsonResponse(w, http.StatusOK, shift)
}

// OpenShift handles POST /api/shifts/open/.
func (h *SalesHandler) OpenShift(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.OpenShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shift, err := store.OpenShift(r.Context(), h.DB, claims.Company(), claims.UserID, req)
	if err != nil {
		storeError(w, h.Log, err, "open shift")
		return
	}

	recordActivity(r, h.DB, h.Log, store.ActionOpened, "shift", shift.ID,
		"Opened shift at %s with %s", shift.BranchName, shift.OpeningCash.StringFixed(2))
	jsonResponse(w, http.StatusCreated, shift)
}

// CloseShift handles POST /api/shifts/{id}/close/. Cashiers close their own
// shifts; company admins can close any.
func (h *SalesHandler) CloseShift(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id, ok := pathID(w, r, "shift")
	if !ok {
		return
	}
	var req model.CloseShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shift, err := store.GetShift(r.Context(), h.DB, claims.Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "close shift")
		return
	}
	if shift == nil || (shift.UserID != claims.UserID && !claims.IsAdmin) {
		notFound(w, "shift")
		return
	}

	closed, err := store.CloseShift(r.Context(), h.DB, claims.Company(), id, req)
	if err != nil {
		storeError(w, h.Log, err, "close shift")
		return
	}

	recordActivity(r, h.DB, h.Log, store.ActionClosed, "shift", closed.ID,
		"Closed shift at %s, difference %s", closed.BranchName, closed.Difference.StringFixed(2))
	jsonResponse(w, http.StatusOK, closed)
}
