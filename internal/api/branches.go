package api

import (
	"database/sql"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/imaging"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

var one = decimal.NewFromInt(1)

// BranchesHandler handles branch and branding endpoints.
type BranchesHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// List handles GET /api/branches/.
func (h *BranchesHandler) List(w http.ResponseWriter, r *http.Request) {
	branches, err := store.ListBranches(r.Context(), h.DB, GetClaims(r.Context()).Company())
	if err != nil {
		storeError(w, h.Log, err, "list branches")
		return
	}
	jsonList(w, branches)
}

// Create handles POST /api/branches/.
func (h *BranchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.BranchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThanOrEqual(one) {
		jsonError(w, http.StatusBadRequest, "tax rate must be a fraction between 0 and 1")
		return
	}

	branch, err := store.CreateBranch(r.Context(), h.DB, GetClaims(r.Context()).Company(), req)
	if err != nil {
		storeError(w, h.Log, err, "create branch")
		return
	}

	recordActivity(r, h.DB, h.Log, store.ActionCreated, "branch", branch.ID, "Created branch %s", branch.Name)
	jsonResponse(w, http.StatusCreated, branch)
}

// Get handles GET /api/branches/{id}/.
func (h *BranchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.branch(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, branch)
}

// Update handles PUT /api/branches/{id}/.
func (h *BranchesHandler) Update(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.branch(w, r)
	if !ok {
		return
	}
	var req model.BranchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThanOrEqual(one) {
		jsonError(w, http.StatusBadRequest, "tax rate must be a fraction between 0 and 1")
		return
	}

	companyID := GetClaims(r.Context()).Company()
	if err := store.UpdateBranch(r.Context(), h.DB, companyID, branch.ID, req); err != nil {
		storeError(w, h.Log, err, "update branch")
		return
	}
	updated, err := store.GetBranch(r.Context(), h.DB, companyID, branch.ID)
	if err != nil {
		storeError(w, h.Log, err, "update branch")
		return
	}

	recordActivity(r, h.DB, h.Log, store.ActionUpdated, "branch", branch.ID, "Updated branch %s", updated.Name)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/branches/{id}/.
func (h *BranchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.branch(w, r)
	if !ok {
		return
	}
	if err := store.DeleteBranch(r.Context(), h.DB, branch.CompanyID, branch.ID); err != nil {
		storeError(w, h.Log, err, "delete branch")
		return
	}

	recordActivity(r, h.DB, h.Log, store.ActionDeleted, "branch", branch.ID, "Deleted branch %s", branch.Name)
	message(w, "branch deleted")
}

// UpdateBranding handles POST /api/branches/{id}/branding/ (multipart:
// primary_color, secondary_color, logo, favicon). Missing parts are left
// unchanged.
func (h *BranchesHandler) UpdateBranding(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.branch(w, r)
	if !ok {
		return
	}

	// Two images plus form fields.
	r.Body = http.MaxBytesReader(w, r.Body, 2*imaging.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	form := struct {
		PrimaryColor   string `json:"primary_color" validate:"omitempty,hexcolor"`
		SecondaryColor string `json:"secondary_color" validate:"omitempty,hexcolor"`
	}{
		PrimaryColor:   r.FormValue("primary_color"),
		SecondaryColor: r.FormValue("secondary_color"),
	}
	if !validBody(w, &form) {
		return
	}

	logo, ok := h.formImage(w, r, "logo", imaging.Logo)
	if !ok {
		return
	}
	favicon, ok := h.formImage(w, r, "favicon", imaging.Favicon)
	if !ok {
		return
	}

	if err := store.UpdateBranding(r.Context(), h.DB, branch.CompanyID, branch.ID,
		form.PrimaryColor, form.SecondaryColor, logo, favicon); err != nil {
		storeError(w, h.Log, err, "update branding")
		return
	}
	updated, err := store.GetBranch(r.Context(), h.DB, branch.CompanyID, branch.ID)
	if err != nil {
		storeError(w, h.Log, err, "update branding")
		return
	}

	recordActivity(r, h.DB, h.Log, store.ActionUpdated, "branch", branch.ID, "Updated branding of %s", branch.Name)
	jsonResponse(w, http.StatusOK, updated)
}

// formImage processes an optional uploaded file. A missing file yields nil.
func (h *BranchesHandler) formImage(w http.ResponseWriter, r *http.Request, field string, process func(io.Reader) (*imaging.Result, error)) (*store.Blob, bool) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid "+field+" upload")
		return nil, false
	}
	defer file.Close()

	result, err := process(file)
	if err != nil {
		imageError(w, h.Log, field, err)
		return nil, false
	}
	return &store.Blob{Data: result.Data, Mime: result.MIME}, true
}

// Theme handles GET /api/branches/{id}/theme/.
func (h *BranchesHandler) Theme(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "branch")
	if !ok {
		return
	}
	theme, err := store.GetBranchTheme(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get theme")
		return
	}
	if theme == nil {
		notFound(w, "branch")
		return
	}
	jsonResponse(w, http.StatusOK, theme)
}

// Logo handles GET /api/branches/{id}/logo/.
func (h *BranchesHandler) Logo(w http.ResponseWriter, r *http.Request) {
	h.image(w, r, "logo")
}

// Favicon handles GET /api/branches/{id}/favicon/.
func (h *BranchesHandler) Favicon(w http.ResponseWriter, r *http.Request) {
	h.image(w, r, "favicon")
}

func (h *BranchesHandler) image(w http.ResponseWriter, r *http.Request, kind string) {
	id, ok := pathID(w, r, "branch")
	if !ok {
		return
	}
	blob, err := store.GetBranchImage(r.Context(), h.DB, GetClaims(r.Context()).Company(), id, kind)
	if err != nil {
		storeError(w, h.Log, err, "get "+kind)
		return
	}
	if blob == nil {
		jsonError(w, http.StatusNotFound, "no "+kind)
		return
	}
	writeImage(w, blob.Data, blob.Mime)
}

// branch loads the {id} branch of the caller's company, writing a 404 when missing.
func (h *BranchesHandler) branch(w http.ResponseWriter, r *http.Request) (*model.Branch, bool) {
	id, ok := pathID(w, r, "branch")
	if !ok {
		return nil, false
	}
	branch, err := store.GetBranch(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get branch")
		return nil, false
	}
	if branch == nil {
		notFound(w, "branch")
		return nil, false
	}
	return branch, true
}

// imageError reports an upload that could not be normalised.
func imageError(w http.ResponseWriter, log *zap.Logger, field string, err error) {
	if errors.Is(err, imaging.ErrUnsupported) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Debug("rejected image", zap.String("field", field), zap.Error(err))
	jsonError(w, http.StatusBadRequest, field+" could not be read as an image")
}

func writeImage(w http.ResponseWriter, data []byte, mime string) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		zap.L().Debug("writing image", zap.Error(err))
	}
}
