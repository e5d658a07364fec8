package client

import (
	"context"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
)

// ListStock returns stock levels, for one branch when branchID is set.
func (c *Client) ListStock(ctx context.Context, branchID int64) ([]model.Stock, error) {
	var out []model.Stock
	if err := c.getJSON(ctx, "/inventory/", query{}.id("branch_id", branchID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LowStock returns stock rows at or below the product minimum.
func (c *Client) LowStock(ctx context.Context, branchID int64) ([]model.Stock, error) {
	var out []model.Stock
	if err := c.getJSON(ctx, "/inventory/low_stock/", query{}.id("branch_id", branchID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMovements(ctx context.Context, f model.MovementFilter) ([]model.StockMovement, error) {
	q := query{}.
		id("branch_id", f.BranchID).
		id("product_id", f.ProductID).
		text("type", f.Type).
		id("limit", int64(f.Limit))

	var out []model.StockMovement
	if err := c.getJSON(ctx, "/inventory/movements/", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMovement records a manual movement. A transfer yields two
// movements, one per branch.
func (c *Client) CreateMovement(ctx context.Context, req model.CreateMovementRequest) ([]model.StockMovement, error) {
	var out []model.StockMovement
	if err := c.sendJSON(ctx, http.MethodPost, "/inventory/movements/", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
