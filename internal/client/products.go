package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/erazemk/trgovina/internal/model"
)

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.getJSON(ctx, "/categories/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, req model.CategoryRequest) (*model.Category, error) {
	var out model.Category
	if err := c.sendJSON(ctx, http.MethodPost, "/categories/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, req model.CategoryRequest) (*model.Category, error) {
	var out model.Category
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/categories/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, idPath("/categories/", id), nil, nil)
}

// ListProducts searches the catalog. With BranchID set each product
// carries its stock in that branch.
func (c *Client) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	q := query{}.
		text("search", f.Search).
		text("barcode", f.Barcode).
		id("category_id", f.CategoryID).
		id("branch_id", f.BranchID).
		flag("active", f.ActiveOnly)

	var out []model.Product
	if err := c.getJSON(ctx, "/products/", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var out model.Product
	if err := c.getJSON(ctx, idPath("/products/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductByBarcode looks up the product with an exact barcode.
func (c *Client) ProductByBarcode(ctx context.Context, code string) (*model.Product, error) {
	var out model.Product
	if err := c.getJSON(ctx, "/products/barcode/"+url.PathEscape(code)+"/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, req model.ProductRequest) (*model.Product, error) {
	var out model.Product
	if err := c.sendJSON(ctx, http.MethodPost, "/products/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, req model.ProductRequest) (*model.Product, error) {
	var out model.Product
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/products/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, idPath("/products/", id), nil, nil)
}

// UploadProductImage replaces the product photo.
func (c *Client) UploadProductImage(ctx context.Context, id int64, img Upload) (*model.Product, error) {
	var out model.Product
	req := c.request(ctx).SetResult(&out).SetFileReader("image", img.Name, img.Data)
	if _, err := c.execute(req, http.MethodPost, idPath("/products/", id, "image")); err != nil {
		return nil, err
	}
	return &out, nil
}
