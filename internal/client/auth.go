package client

import (
	"context"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/session"
)

// Login exchanges credentials for tokens and stores them.
func (c *Client) Login(ctx context.Context, username, password string) (*model.TokenPair, error) {
	var pair model.TokenPair
	req := model.LoginRequest{Username: username, Password: password}
	if err := c.sendJSON(ctx, http.MethodPost, loginPath, req, &pair); err != nil {
		return nil, err
	}
	if err := c.tokens.SetTokens(session.Tokens{Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout revokes the refresh token and clears the local session. The
// session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	refresh := c.tokens.Tokens().Refresh
	var err error
	if refresh != "" {
		err = c.sendJSON(ctx, http.MethodPost, "/auth/logout/", model.RefreshRequest{Refresh: refresh}, nil)
	}
	if clearErr := c.tokens.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

// Me returns the authenticated user with effective permissions.
func (c *Client) Me(ctx context.Context) (*model.Me, error) {
	var me model.Me
	if err := c.getJSON(ctx, "/auth/me/", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// ChangePassword changes the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	req := model.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return c.sendJSON(ctx, http.MethodPut, "/auth/password/", req, nil)
}

// Refresh rotates the tokens now.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.rt.refresh(ctx, c.tokens.Tokens().Access)
	return err
}
