package client

import (
	"context"

	"github.com/erazemk/trgovina/internal/model"
)

func periodQuery(p model.ReportPeriod) query {
	return query{}.
		id("branch_id", p.BranchID).
		at("from", p.From).
		at("to", p.To).
		id("limit", int64(p.Limit))
}

func (c *Client) SalesSummary(ctx context.Context, p model.ReportPeriod) (*model.SalesSummary, error) {
	var out model.SalesSummary
	if err := c.getJSON(ctx, "/reports/sales_summary/", periodQuery(p), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TopProducts(ctx context.Context, p model.ReportPeriod) ([]model.TopProduct, error) {
	var out []model.TopProduct
	if err := c.getJSON(ctx, "/reports/top_products/", periodQuery(p), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InventoryValue values stock per branch at cost and retail price.
func (c *Client) InventoryValue(ctx context.Context, branchID int64) ([]model.InventoryValue, error) {
	var out []model.InventoryValue
	if err := c.getJSON(ctx, "/reports/inventory_value/", query{}.id("branch_id", branchID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
