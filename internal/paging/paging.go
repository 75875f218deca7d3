// Package paging implements offset/limit list fetching that detects a next
// page by asking for one extra row.
package paging

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// PageSizes are the page sizes a list view may use.
var PageSizes = []int{5, 10, 20, 50}

const DefaultPageSize = 10

// TotalUnknown is reported as the total row count when more rows exist past
// the current page. It reads as "at least Offset+Limit+1".
const TotalUnknown = -1

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// PageRequest asks for Limit rows starting at Offset.
type PageRequest struct {
	Limit   int
	Offset  int
	Filters Filters
}

// NewRequest builds the request for page index page (zero based).
func NewRequest(page, size int, filters Filters) PageRequest {
	return PageRequest{Limit: size, Offset: page * size, Filters: filters}
}

func (r PageRequest) Validate() error {
	if r.Limit <= 0 {
		return apperrors.Precondition(fmt.Sprintf("page limit must be positive, got %d", r.Limit))
	}
	if r.Offset < 0 {
		return apperrors.Precondition(fmt.Sprintf("page offset must not be negative, got %d", r.Offset))
	}
	return nil
}

// Signature identifies the request for staleness checks.
func (r PageRequest) Signature() string {
	return fmt.Sprintf("limit=%d&offset=%d&%s", r.Limit, r.Offset, r.Filters.Signature())
}

// PageResult is one page of items.
type PageResult[T any] struct {
	Items       []T
	HasNextPage bool
	// Total is Offset+len(Items) on the last page, TotalUnknown otherwise.
	Total int
}

// Fetcher returns the raw rows of a list endpoint for the given query.
type Fetcher[T any] func(ctx context.Context, endpoint string, query url.Values) ([]T, error)

// FetchPage requests Limit+1 rows; the extra row only signals that a next
// page exists and is never returned.
func FetchPage[T any](ctx context.Context, fetch Fetcher[T], endpoint string, spec FilterSpec, req PageRequest) (PageResult[T], error) {
	if err := req.Validate(); err != nil {
		return PageResult[T]{}, err
	}
	if err := spec.Validate(req.Filters); err != nil {
		return PageResult[T]{}, err
	}

	query := spec.Query(req.Filters)
	query.Set("limit", strconv.Itoa(req.Limit+1))
	query.Set("offset", strconv.Itoa(req.Offset))

	rows, err := fetch(ctx, endpoint, query)
	if err != nil {
		return PageResult[T]{}, err
	}

	res := PageResult[T]{Items: rows}
	if len(rows) > req.Limit {
		res.Items = rows[:req.Limit:req.Limit]
		res.HasNextPage = true
		res.Total = TotalUnknown
	} else {
		res.Total = req.Offset + len(rows)
	}
	if res.Items == nil {
		res.Items = []T{}
	}
	return res, nil
}
