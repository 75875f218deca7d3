package resources

import (
	"context"
	"io"

	"github.com/jwalitptl/clinic-admin/internal/apiclient"
	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/paging"
)

const (
	ContentsEndpoint = "/contents"
	// ImageField is the multipart field the upload endpoint reads.
	ImageField = "image"
)

var ContentFilters = paging.FilterSpec{
	Keys:  []paging.Key{paging.KeyType, paging.KeySearch, paging.KeyOwner},
	Types: []string{string(model.ContentNews), string(model.ContentArticle)},
}

type Contents struct {
	*Resource[model.Content, string]
}

func NewContents(api API) *Contents {
	return &Contents{newResource[model.Content, string](api, ContentsEndpoint, ContentFilters)}
}

func (c *Contents) Create(ctx context.Context, req model.CreateContentRequest) (string, error) {
	var out model.CreatedSlug
	if err := c.api.Post(ctx, c.endpoint, req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Contents) Update(ctx context.Context, id string, req model.UpdateContentRequest) error {
	return c.api.Put(ctx, c.path(id), req, nil)
}

// UploadImage stores an image for use in content bodies and returns its
// public URL.
func (c *Contents) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var out model.UploadedImage
	if err := c.api.Upload(ctx, apiclient.ImagesEndpoint, ImageField, filename, r, &out); err != nil {
		return "", err
	}
	return out.PublicURL, nil
}
