package api

import (
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// period reads branch_id, from, to and limit. Without a range the report
// covers the last 30 days.
func period(w http.ResponseWriter, r *http.Request) (model.ReportPeriod, bool) {
	q := &queryParser{r: r}
	p := model.ReportPeriod{
		BranchID: q.int64("branch_id"),
		From:     q.time("from"),
		To:       q.time("to"),
		Limit:    q.int("limit"),
	}
	if q.err != nil {
		jsonError(w, http.StatusBadRequest, q.err.Error())
		return p, false
	}
	if p.From.IsZero() && p.To.IsZero() {
		p.To = time.Now().UTC()
		p.From = p.To.AddDate(0, 0, -30)
	}
	if !p.From.IsZero() && !p.To.IsZero() && !p.From.Before(p.To) {
		jsonError(w, http.StatusBadRequest, "from must be before to")
		return p, false
	}
	return p, true
}

// SalesSummary handles GET /api/reports/sales_summary/.
func (h *ReportsHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	summary, err := store.SalesSummary(r.Context(), h.DB, GetClaims(r.Context()).Company(), p)
	if err != nil {
		storeError(w, h.Log, err, "summarise sales")
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}

// TopProducts handles GET /api/reports/top_products/.
func (h *ReportsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	top, err := store.TopProducts(r.Context(), h.DB, GetClaims(r.Context()).Company(), p)
	if err != nil {
		storeError(w, h.Log, err, "list top products")
		return
	}
	jsonList(w, top)
}

// InventoryValue handles GET /api/reports/inventory_value/?branch_id=.
func (h *ReportsHandler) InventoryValue(w http.ResponseWriter, r *http.Request) {
	branchID, err := queryInt64(r, "branch_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	values, err := store.InventoryValue(r.Context(), h.DB, GetClaims(r.Context()).Company(), branchID)
	if err != nil {
		storeError(w, h.Log, err, "value inventory")
		return
	}
	jsonList(w, values)
}
