package client

import (
	"context"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
)

// ListCompanies lists every tenant. Platform admins only.
func (c *Client) ListCompanies(ctx context.Context) ([]model.Company, error) {
	var out []model.Company
	if err := c.getJSON(ctx, "/companies/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	var out model.Company
	if err := c.getJSON(ctx, idPath("/companies/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCompany(ctx context.Context, req model.CreateCompanyRequest) (*model.Company, error) {
	var out model.Company
	if err := c.sendJSON(ctx, http.MethodPost, "/companies/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCompany(ctx context.Context, id int64, req model.UpdateCompanyRequest) (*model.Company, error) {
	var out model.Company
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/companies/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCompany(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, idPath("/companies/", id), nil, nil)
}

// ListSubscriptions lists subscriptions, optionally for one company.
func (c *Client) ListSubscriptions(ctx context.Context, companyID int64) ([]model.Subscription, error) {
	var out []model.Subscription
	if err := c.getJSON(ctx, "/subscriptions/", query{}.id("company_id", companyID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	var out model.Subscription
	if err := c.getJSON(ctx, idPath("/subscriptions/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (*model.Subscription, error) {
	var out model.Subscription
	if err := c.sendJSON(ctx, http.MethodPost, "/subscriptions/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSubscription(ctx context.Context, id int64, req model.SubscriptionRequest) (*model.Subscription, error) {
	var out model.Subscription
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/subscriptions/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlatformUsage reports every company's usage against its plan.
func (c *Client) PlatformUsage(ctx context.Context) ([]model.CompanyUsage, error) {
	var out []model.CompanyUsage
	if err := c.getJSON(ctx, "/subscriptions/platform_usage/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
