package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/imaging"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// CatalogHandler handles category and product endpoints.
type CatalogHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// ListCategories handles GET /api/categories/.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB, GetClaims(r.Context()).Company())
	if err != nil {
		storeError(w, h.Log, err, "list categories")
		return
	}
	jsonList(w, categories)
}

// CreateCategory handles POST /api/categories/.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, err := store.CreateCategory(r.Context(), h.DB, GetClaims(r.Context()).Company(), req)
	if err != nil {
		storeError(w, h.Log, err, "create category")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionCreated, "category", category.ID, "Created category %s", category.Name)
	jsonResponse(w, http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/categories/{id}/.
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	var req model.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := store.UpdateCategory(r.Context(), h.DB, category.CompanyID, category.ID, req); err != nil {
		storeError(w, h.Log, err, "update category")
		return
	}
	updated, err := store.GetCategory(r.Context(), h.DB, category.CompanyID, category.ID)
	if err != nil {
		storeError(w, h.Log, err, "update category")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// DeleteCategory handles DELETE /api/categories/{id}/. Its products become uncategorised.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	if err := store.DeleteCategory(r.Context(), h.DB, category.CompanyID, category.ID); err != nil {
		storeError(w, h.Log, err, "delete category")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionDeleted, "category", category.ID, "Deleted category %s", category.Name)
	message(w, "category deleted")
}

func (h *CatalogHandler) category(w http.ResponseWriter, r *http.Request) (*model.Category, bool) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return nil, false
	}
	category, err := store.GetCategory(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get category")
		return nil, false
	}
	if category == nil {
		notFound(w, "category")
		return nil, false
	}
	return category, true
}

// ListProducts handles GET /api/products/?search=&barcode=&category_id=&branch_id=&active=.
// Stock is reported for branch_id, or the caller's own branch.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryInt64(r, "category_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	products, err := store.ListProducts(r.Context(), h.DB, GetClaims(r.Context()).Company(), model.ProductFilter{
		Search:     q.Get("search"),
		Barcode:    q.Get("barcode"),
		CategoryID: categoryID,
		BranchID:   branchID,
		ActiveOnly: queryBool(r, "active"),
	})
	if err != nil {
		storeError(w, h.Log, err, "list products")
		return
	}
	jsonList(w, products)
}

// GetProduct handles GET /api/products/{id}/.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	product, err := store.GetProduct(r.Context(), h.DB, GetClaims(r.Context()).Company(), id, branchID)
	if err != nil {
		storeError(w, h.Log, err, "get product")
		return
	}
	if product == nil {
		notFound(w, "product")
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// GetByBarcode handles GET /api/products/barcode/{code}/.
func (h *CatalogHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	product, err := store.GetProductByBarcode(r.Context(), h.DB, GetClaims(r.Context()).Company(), code, branchID)
	if err != nil {
		storeError(w, h.Log, err, "look up barcode")
		return
	}
	if product == nil {
		jsonError(w, http.StatusNotFound, "no product with barcode "+code)
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/products/.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.ProductRequest
	if !decodeJSON(w, r, &req) || !validPrices(w, req) {
		return
	}
	product, err := store.CreateProduct(r.Context(), h.DB, GetClaims(r.Context()).Company(), req)
	if err != nil {
		storeError(w, h.Log, err, "create product")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionCreated, "product", product.ID, "Created product %s (%s)", product.Name, product.SKU)
	jsonResponse(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products/{id}/.
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	var req model.ProductRequest
	if !decodeJSON(w, r, &req) || !validPrices(w, req) {
		return
	}
	if err := store.UpdateProduct(r.Context(), h.DB, product.CompanyID, product.ID, req); err != nil {
		storeError(w, h.Log, err, "update product")
		return
	}
	updated, err := store.GetProduct(r.Context(), h.DB, product.CompanyID, product.ID, 0)
	if err != nil {
		storeError(w, h.Log, err, "update product")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionUpdated, "product", product.ID, "Updated product %s", updated.Name)
	jsonResponse(w, http.StatusOK, updated)
}

// DeleteProduct handles DELETE /api/products/{id}/.
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	if err := store.DeleteProduct(r.Context(), h.DB, product.CompanyID, product.ID); err != nil {
		storeError(w, h.Log, err, "delete product")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionDeleted, "product", product.ID, "Deleted product %s", product.Name)
	message(w, "product deleted")
}

// UploadImage handles POST /api/products/{id}/image/ (multipart field "image").
func (h *CatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	result, err := imaging.Product(file)
	if err != nil {
		imageError(w, h.Log, "image", err)
		return
	}
	if err := store.SetProductImage(r.Context(), h.DB, product.CompanyID, product.ID, result.Data, result.MIME); err != nil {
		storeError(w, h.Log, err, "save image")
		return
	}

	updated, err := store.GetProduct(r.Context(), h.DB, product.CompanyID, product.ID, 0)
	if err != nil {
		storeError(w, h.Log, err, "save image")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// GetImage handles GET /api/products/{id}/image.
func (h *CatalogHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}
	data, mime, err := store.GetProductImage(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	writeImage(w, data, mime)
}

func (h *CatalogHandler) product(w http.ResponseWriter, r *http.Request) (*model.Product, bool) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return nil, false
	}
	product, err := store.GetProduct(r.Context(), h.DB, GetClaims(r.Context()).Company(), id, 0)
	if err != nil {
		storeError(w, h.Log, err, "get product")
		return nil, false
	}
	if product == nil {
		notFound(w, "product")
		return nil, false
	}
	return product, true
}

func validPrices(w http.ResponseWriter, req model.ProductRequest) bool {
	if req.Price.IsNegative() || req.Cost.IsNegative() {
		jsonError(w, http.StatusBadRequest, "price and cost cannot be negative")
		return false
	}
	return true
}

// branchParam returns the branch_id query parameter, defaulting to the
// caller's own branch.
func branchParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := queryInt64(r, "branch_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	if id == 0 {
		if claims := GetClaims(r.Context()); claims != nil && claims.BranchID != nil {
			id = *claims.BranchID
		}
	}
	return id, true
}
