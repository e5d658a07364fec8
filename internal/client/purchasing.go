package client

import (
	"context"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
)

func (c *Client) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	var out []model.Supplier
	if err := c.getJSON(ctx, "/suppliers/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSupplier(ctx context.Context, id int64) (*model.Supplier, error) {
	var out model.Supplier
	if err := c.getJSON(ctx, idPath("/suppliers/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSupplier(ctx context.Context, req model.SupplierRequest) (*model.Supplier, error) {
	var out model.Supplier
	if err := c.sendJSON(ctx, http.MethodPost, "/suppliers/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSupplier(ctx context.Context, id int64, req model.SupplierRequest) (*model.Supplier, error) {
	var out model.Supplier
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/suppliers/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSupplier(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, idPath("/suppliers/", id), nil, nil)
}

// ListPurchaseOrders lists purchase orders, optionally by status.
func (c *Client) ListPurchaseOrders(ctx context.Context, status string) ([]model.PurchaseOrder, error) {
	var out []model.PurchaseOrder
	if err := c.getJSON(ctx, "/purchase_orders/", query{}.text("status", status), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPurchaseOrder(ctx context.Context, id int64) (*model.PurchaseOrder, error) {
	var out model.PurchaseOrder
	if err := c.getJSON(ctx, idPath("/purchase_orders/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePurchaseOrder(ctx context.Context, req model.CreatePurchaseOrderRequest) (*model.PurchaseOrder, error) {
	var out model.PurchaseOrder
	if err := c.sendJSON(ctx, http.MethodPost, "/purchase_orders/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReceivePurchaseOrder books the order's items into the branch stock.
func (c *Client) ReceivePurchaseOrder(ctx context.Context, id int64) (*model.PurchaseOrder, error) {
	var out model.PurchaseOrder
	if err := c.sendJSON(ctx, http.MethodPost, idPath("/purchase_orders/", id, "receive"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelPurchaseOrder(ctx context.Context, id int64) (*model.PurchaseOrder, error) {
	var out model.PurchaseOrder
	if err := c.sendJSON(ctx, http.MethodPost, idPath("/purchase_orders/", id, "cancel"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
