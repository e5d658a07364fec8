package client

import (
	"context"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
)

func (c *Client) ListSales(ctx context.Context, f model.SaleFilter) ([]model.Sale, error) {
	q := query{}.
		id("branch_id", f.BranchID).
		id("user_id", f.UserID).
		at("from", f.From).
		at("to", f.To).
		text("status", f.Status).
		id("limit", int64(f.Limit))

	var out []model.Sale
	if err := c.getJSON(ctx, "/sales/", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSale returns a sale with its items.
func (c *Client) GetSale(ctx context.Context, id int64) (*model.Sale, error) {
	var out model.Sale
	if err := c.getJSON(ctx, idPath("/sales/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSale rings up a sale. Totals, tax and change are computed by the server.
func (c *Client) CreateSale(ctx context.Context, req model.CreateSaleRequest) (*model.Sale, error) {
	var out model.Sale
	if err := c.sendJSON(ctx, http.MethodPost, "/sales/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VoidSale voids a completed sale and returns its items to stock.
func (c *Client) VoidSale(ctx context.Context, id int64) (*model.Sale, error) {
	var out model.Sale
	if err := c.sendJSON(ctx, http.MethodPost, idPath("/sales/", id, "void"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListShifts(ctx context.Context, branchID int64) ([]model.Shift, error) {
	var out []model.Shift
	if err := c.getJSON(ctx, "/shifts/", query{}.id("branch_id", branchID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentShift returns the caller's open shift, or nil when none is open.
func (c *Client) CurrentShift(ctx context.Context) (*model.Shift, error) {
	var out model.Shift
	resp, err := c.execute(c.request(ctx).SetResult(&out), http.MethodGet, "/shifts/current/")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNoContent {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) OpenShift(ctx context.Context, req model.OpenShiftRequest) (*model.Shift, error) {
	var out model.Shift
	if err := c.sendJSON(ctx, http.MethodPost, "/shifts/open/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseShift closes a shift and returns it with the cash difference.
func (c *Client) CloseShift(ctx context.Context, id int64, req model.CloseShiftRequest) (*model.Shift, error) {
	var out model.Shift
	if err := c.sendJSON(ctx, http.MethodPost, idPath("/shifts/", id, "close"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
