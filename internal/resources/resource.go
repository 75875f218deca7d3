// Package resources exposes typed CRUD over the clinic API endpoints.
package resources

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/jwalitptl/clinic-admin/internal/apiclient"
	"github.com/jwalitptl/clinic-admin/internal/paging"
)

// API is the transport the services use. *apiclient.Client implements it.
type API interface {
	Get(ctx context.Context, endpoint string, query url.Values, out interface{}) error
	Post(ctx context.Context, endpoint string, body, out interface{}) error
	Put(ctx context.Context, endpoint string, body, out interface{}) error
	Delete(ctx context.Context, endpoint string) error
	Upload(ctx context.Context, endpoint, field, filename string, r io.Reader, out interface{}) error
}

// ID is the key type of a resource.
type ID interface {
	~int64 | ~string
}

// Resource holds the operations every list endpoint shares.
type Resource[T any, K ID] struct {
	api      API
	endpoint string
	spec     paging.FilterSpec
	fetch    paging.Fetcher[T]
}

func newResource[T any, K ID](api API, endpoint string, spec paging.FilterSpec) *Resource[T, K] {
	return &Resource[T, K]{
		api:      api,
		endpoint: endpoint,
		spec:     spec,
		fetch:    apiclient.ListFetcher[T](api),
	}
}

func (r *Resource[T, K]) Endpoint() string { return r.endpoint }

// Spec returns the filters the list endpoint accepts.
func (r *Resource[T, K]) Spec() paging.FilterSpec { return r.spec }

// List fetches one page. Its signature matches listview.Loader.
func (r *Resource[T, K]) List(ctx context.Context, req paging.PageRequest) (paging.PageResult[T], error) {
	return paging.FetchPage(ctx, r.fetch, r.endpoint, r.spec, req)
}

func (r *Resource[T, K]) Get(ctx context.Context, id K) (T, error) {
	var out T
	err := r.api.Get(ctx, r.path(id), nil, &out)
	return out, err
}

func (r *Resource[T, K]) Delete(ctx context.Context, id K) error {
	return r.api.Delete(ctx, r.path(id))
}

func (r *Resource[T, K]) path(id K, sub ...string) string {
	p := r.endpoint + "/" + url.PathEscape(fmt.Sprint(id))
	for _, s := range sub {
		p += "/" + s
	}
	return p
}
