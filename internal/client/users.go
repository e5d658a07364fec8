package client

import (
	"context"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
)

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.getJSON(ctx, "/users/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var out model.User
	if err := c.getJSON(ctx, idPath("/users/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	var out model.User
	if err := c.sendJSON(ctx, http.MethodPost, "/users/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error) {
	var out model.User
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/users/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, idPath("/users/", id), nil, nil)
}

// ResetUserPassword sets another user's password.
func (c *Client) ResetUserPassword(ctx context.Context, id int64, password string) error {
	req := model.ResetPasswordRequest{Password: password}
	return c.sendJSON(ctx, http.MethodPut, idPath("/users/", id, "password"), req, nil)
}

func (c *Client) ListRoles(ctx context.Context) ([]model.Role, error) {
	var out []model.Role
	if err := c.getJSON(ctx, "/roles/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRole(ctx context.Context, req model.RoleRequest) (*model.Role, error) {
	var out model.Role
	if err := c.sendJSON(ctx, http.MethodPost, "/roles/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRole(ctx context.Context, id int64, req model.RoleRequest) (*model.Role, error) {
	var out model.Role
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/roles/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, idPath("/roles/", id), nil, nil)
}

// ListPermissions returns the permission catalog roles are built from.
func (c *Client) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var out []model.Permission
	if err := c.getJSON(ctx, "/permissions/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
