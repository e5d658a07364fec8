package client

import (
	"context"
	"io"
	"net/http"

	"github.com/erazemk/trgovina/internal/model"
)

// Upload is a file sent in a multipart request.
type Upload struct {
	Name string
	Data io.Reader
}

// Branding is the multipart body of UpdateBranding. Empty fields are left
// unchanged.
type Branding struct {
	PrimaryColor   string
	SecondaryColor string
	Logo           *Upload
	Favicon        *Upload
}

func (c *Client) ListBranches(ctx context.Context) ([]model.Branch, error) {
	var out []model.Branch
	if err := c.getJSON(ctx, "/branches/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBranch(ctx context.Context, id int64) (*model.Branch, error) {
	var out model.Branch
	if err := c.getJSON(ctx, idPath("/branches/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBranch(ctx context.Context, req model.BranchRequest) (*model.Branch, error) {
	var out model.Branch
	if err := c.sendJSON(ctx, http.MethodPost, "/branches/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBranch(ctx context.Context, id int64, req model.BranchRequest) (*model.Branch, error) {
	var out model.Branch
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/branches/", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBranch(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodDelete, idPath("/branches/", id), nil, nil)
}

// UpdateBranding uploads a branch's colours, logo and favicon as multipart form data.
func (c *Client) UpdateBranding(ctx context.Context, id int64, b Branding) (*model.Branch, error) {
	fields := map[string]string{}
	if b.PrimaryColor != "" {
		fields["primary_color"] = b.PrimaryColor
	}
	if b.SecondaryColor != "" {
		fields["secondary_color"] = b.SecondaryColor
	}

	var out model.Branch
	req := c.request(ctx).SetResult(&out).SetMultipartFormData(fields)
	if b.Logo != nil {
		req.SetFileReader("logo", b.Logo.Name, b.Logo.Data)
	}
	if b.Favicon != nil {
		req.SetFileReader("favicon", b.Favicon.Name, b.Favicon.Data)
	}
	if _, err := c.execute(req, http.MethodPost, idPath("/branches/", id, "branding")); err != nil {
		return nil, err
	}
	return &out, nil
}

// BranchTheme returns the branding a client should apply for the branch.
func (c *Client) BranchTheme(ctx context.Context, id int64) (*model.Theme, error) {
	var out model.Theme
	if err := c.getJSON(ctx, idPath("/branches/", id, "theme"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BranchLogo downloads the branch logo and its content type.
func (c *Client) BranchLogo(ctx context.Context, id int64) ([]byte, string, error) {
	return c.download(ctx, idPath("/branches/", id, "logo"))
}

// BranchFavicon downloads the branch favicon and its content type.
func (c *Client) BranchFavicon(ctx context.Context, id int64) ([]byte, string, error) {
	return c.download(ctx, idPath("/branches/", id, "favicon"))
}

func (c *Client) download(ctx context.Context, path string) ([]byte, string, error) {
	req := c.request(ctx).SetHeader("Accept", "image/*")
	resp, err := c.execute(req, http.MethodGet, path)
	if err != nil {
		return nil, "", err
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
