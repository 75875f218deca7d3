package apiclient

import (
	"context"
	"net/url"

	"github.com/jwalitptl/clinic-admin/internal/paging"
)

// Getter is the read side of the client.
type Getter interface {
	Get(ctx context.Context, endpoint string, query url.Values, out interface{}) error
}

// ListFetcher decodes a list endpoint's JSON array into []T.
func ListFetcher[T any](g Getter) paging.Fetcher[T] {
	return func(ctx context.Context, endpoint string, query url.Values) ([]T, error) {
		var rows []T
		if err := g.Get(ctx, endpoint, query, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
}
