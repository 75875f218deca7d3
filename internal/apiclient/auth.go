package apiclient

import (
	"context"

	"github.com/jwalitptl/clinic-admin/internal/model"
)

// Identity asks the server who owns the current session.
func (c *Client) Identity(ctx context.Context) (model.Identity, error) {
	var id model.Identity
	err := c.Get(ctx, IdentityEndpoint, nil, &id)
	return id, err
}

func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error) {
	var resp model.LoginResponse
	err := c.Post(ctx, LoginEndpoint, creds, &resp)
	return resp, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.Post(ctx, LogoutEndpoint, nil, nil)
}

// ResetSession forgets the bearer token and every cookie.
func (c *Client) ResetSession() {
	c.SetToken("")
	c.ClearCookies()
}
