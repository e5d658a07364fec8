package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// CompaniesHandler handles tenant and subscription endpoints (platform admins only).
type CompaniesHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// List handles GET /api/companies/.
func (h *CompaniesHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := store.ListCompanies(r.Context(), h.DB)
	if err != nil {
		storeError(w, h.Log, err, "list companies")
		return
	}
	jsonList(w, companies)
}

// Create handles POST /api/companies/.
func (h *CompaniesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCompanyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var hash string
	if req.AdminUsername != "" {
		if err := model.ValidatePassword(req.AdminPassword); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		var err error
		if hash, err = hashPassword(req.AdminPassword); err != nil {
			storeError(w, h.Log, err, "hash password")
			return
		}
	}

	company, err := store.CreateCompany(r.Context(), h.DB, req, hash)
	if err != nil {
		storeError(w, h.Log, err, "create company")
		return
	}

	h.Log.Info("company created", zap.String("user", GetClaims(r.Context()).Username),
		zap.Int64("company", company.ID), zap.String("name", company.Name))
	jsonResponse(w, http.StatusCreated, company)
}

// Get handles GET /api/companies/{id}/.
func (h *CompaniesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "company")
	if !ok {
		return
	}
	company, err := store.GetCompany(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, h.Log, err, "get company")
		return
	}
	if company == nil {
		notFound(w, "company")
		return
	}
	jsonResponse(w, http.StatusOK, company)
}

// Update handles PUT /api/companies/{id}/.
func (h *CompaniesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "company")
	if !ok {
		return
	}
	var req model.UpdateCompanyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if existing, err := store.GetCompany(r.Context(), h.DB, id); err != nil || existing == nil {
		if err != nil {
			storeError(w, h.Log, err, "update company")
			return
		}
		notFound(w, "company")
		return
	}
	if err := store.UpdateCompany(r.Context(), h.DB, id, req); err != nil {
		storeError(w, h.Log, err, "update company")
		return
	}

	company, err := store.GetCompany(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, h.Log, err, "update company")
		return
	}
	h.Log.Info("company updated", zap.Int64("company", id), zap.String("status", company.Status))
	jsonResponse(w, http.StatusOK, company)
}

// Delete handles DELETE /api/companies/{id}/.
func (h *CompaniesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "company")
	if !ok {
		return
	}
	company, err := store.GetCompany(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, h.Log, err, "delete company")
		return
	}
	if company == nil {
		notFound(w, "company")
		return
	}
	if err := store.DeleteCompany(r.Context(), h.DB, id); err != nil {
		storeError(w, h.Log, err, "delete company")
		return
	}
	h.Log.Info("company deleted", zap.Int64("company", id), zap.String("name", company.Name))
	message(w, "company deleted")
}

// ListSubscriptions handles GET /api/subscriptions/?company_id=.
func (h *CompaniesHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt64(r, "company_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	subs, err := store.ListSubscriptions(r.Context(), h.DB, companyID)
	if err != nil {
		storeError(w, h.Log, err, "list subscriptions")
		return
	}
	jsonList(w, subs)
}

// GetSubscription handles GET /api/subscriptions/{id}/.
func (h *CompaniesHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subscription")
	if !ok {
		return
	}
	sub, err := store.GetSubscription(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, h.Log, err, "get subscription")
		return
	}
	if sub == nil {
		notFound(w, "subscription")
		return
	}
	jsonResponse(w, http.StatusOK, sub)
}

// CreateSubscription handles POST /api/subscriptions/.
func (h *CompaniesHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req model.SubscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := store.CreateSubscription(r.Context(), h.DB, req)
	if err != nil {
		storeError(w, h.Log, err, "create subscription")
		return
	}
	h.Log.Info("subscription created", zap.Int64("company", sub.CompanyID), zap.String("plan", sub.Plan))
	jsonResponse(w, http.StatusCreated, sub)
}

// UpdateSubscription handles PUT /api/subscriptions/{id}/.
func (h *CompaniesHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subscription")
	if !ok {
		return
	}
	var req model.SubscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := store.UpdateSubscription(r.Context(), h.DB, id, req); err != nil {
		storeError(w, h.Log, err, "update subscription")
		return
	}
	sub, err := store.GetSubscription(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, h.Log, err, "update subscription")
		return
	}
	if sub == nil {
		notFound(w, "subscription")
		return
	}
	h.Log.Info("subscription updated", zap.Int64("subscription", id),
		zap.String("plan", sub.Plan), zap.String("status", sub.Status))
	jsonResponse(w, http.StatusOK, sub)
}

// PlatformUsage handles GET /api/subscriptions/platform_usage/.
func (h *CompaniesHandler) PlatformUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := store.PlatformUsage(r.Context(), h.DB)
	if err != nil {
		storeError(w, h.Log, err, "get platform usage")
		return
	}
	jsonList(w, usage)
}
