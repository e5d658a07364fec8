package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// AlertsHandler handles alerts, the activity feed and user reports.
type AlertsHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// List handles GET /api/alerts/?branch_id=&unread=&limit=.
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := &queryParser{r: r}
	f := model.AlertFilter{
		BranchID:   q.int64("branch_id"),
		UnreadOnly: queryBool(r, "unread"),
		Limit:      q.int("limit"),
	}
	if q.err != nil {
		jsonError(w, http.StatusBadRequest, q.err.Error())
		return
	}
	alerts, err := store.ListAlerts(r.Context(), h.DB, GetClaims(r.Context()).Company(), f)
	if err != nil {
		storeError(w, h.Log, err, "list alerts")
		return
	}
	jsonList(w, alerts)
}

// MarkRead handles POST /api/alerts/{id}/read/.
func (h *AlertsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "alert")
	if !ok {
		return
	}
	if err := store.MarkAlertRead(r.Context(), h.DB, GetClaims(r.Context()).Company(), id); err != nil {
		storeError(w, h.Log, err, "mark alert read")
		return
	}
	message(w, "alert marked read")
}

// MarkAllRead handles POST /api/alerts/read_all/.
func (h *AlertsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := store.MarkAllAlertsRead(r.Context(), h.DB, GetClaims(r.Context()).Company())
	if err != nil {
		storeError(w, h.Log, err, "mark alerts read")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"marked": n})
}

// Activity handles GET /api/alerts/activity/?limit=.
func (h *AlertsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt64(r, "limit")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := store.ListActivity(r.Context(), h.DB, GetClaims(r.Context()).Company(), int(n))
	if err != nil {
		storeError(w, h.Log, err, "list activity")
		return
	}
	jsonList(w, entries)
}

// ListUserReports handles GET /api/user_reports/?status=. Platform admins
// see every report; company users need settings.manage and see their
// company's.
func (h *AlertsHandler) ListUserReports(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if !claims.IsPlatformAdmin && (claims.Company() == 0 || !claims.Can(model.PermSettingsManage)) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	status := r.URL.Query().Get("status")
	if err := validate.Var(status, "omitempty,oneof=open reviewed resolved"); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	reports, err := store.ListUserReports(r.Context(), h.DB, claims.Company(), status)
	if err != nil {
		storeError(w, h.Log, err, "list user reports")
		return
	}
	jsonList(w, reports)
}

// CreateUserReport handles POST /api/user_reports/. Any signed-in user can
// send feedback.
func (h *AlertsHandler) CreateUserReport(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.UserReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := store.CreateUserReport(r.Context(), h.DB, claims.CompanyID, claims.UserID, req)
	if err != nil {
		storeError(w, h.Log, err, "submit report")
		return
	}

	h.Log.Info("user report submitted", zap.String("user", claims.Username),
		zap.String("kind", report.Kind), zap.Int64("report", report.ID))
	jsonResponse(w, http.StatusCreated, report)
}

// UpdateUserReport handles PATCH /api/user_reports/{id}/ (platform admins).
func (h *AlertsHandler) UpdateUserReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "report")
	if !ok {
		return
	}
	var req model.UserReportStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := store.GetUserReport(r.Context(), h.DB, 0, id)
	if err != nil {
		storeError(w, h.Log, err, "update report")
		return
	}
	if report == nil {
		notFound(w, "report")
		return
	}
	if err := store.UpdateUserReportStatus(r.Context(), h.DB, id, req.Status); err != nil {
		storeError(w, h.Log, err, "update report")
		return
	}
	updated, err := store.GetUserReport(r.Context(), h.DB, 0, id)
	if err != nil {
		storeError(w, h.Log, err, "update report")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}
