// Package listview keeps the state of one paginated table: the visible page,
// its filters and the loading flag.
package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jwalitptl/clinic-admin/internal/notify"
	"github.com/jwalitptl/clinic-admin/internal/paging"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
	"github.com/jwalitptl/clinic-admin/pkg/logger"
	"github.com/jwalitptl/clinic-admin/pkg/metrics"
)

// ErrSuperseded is returned by a load whose result was dropped because a
// newer load for the same view started after it.
var ErrSuperseded = errors.New("superseded by a newer request")

// Loader fetches one page for the view.
type Loader[T any] func(ctx context.Context, req paging.PageRequest) (paging.PageResult[T], error)

// State is what a table renders.
type State[T any] struct {
	Items       []T
	HasNextPage bool
	Total       int
	Page        int
	PageSize    int
	Filters     paging.Filters
	Loading     bool
	// Loaded is false until the first successful fetch.
	Loaded bool
}

// Offset of the current page.
func (s State[T]) Offset() int {
	return s.Page * s.PageSize
}

// target is the page, size and filters of the newest request.
type target struct {
	page    int
	size    int
	filters paging.Filters
}

type View[T any] struct {
	name     string
	load     Loader[T]
	spec     *paging.FilterSpec
	notifier notify.Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	gen     uint64
	pending int
	// want is what the user last asked for. It runs ahead of state while a
	// fetch is in flight, so every change builds on it.
	want    target
	state   State[T]
}

type Option func(*options)

type options struct {
	notifier notify.Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics
	filters  paging.Filters
	spec     *paging.FilterSpec
}

func WithNotifier(n notify.Notifier) Option { return func(o *options) { o.notifier = n } }
func WithLogger(l *logger.Logger) Option    { return func(o *options) { o.log = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithFilterSpec rejects filters spec does not allow before any request.
func WithFilterSpec(spec paging.FilterSpec) Option {
	return func(o *options) { o.spec = &spec }
}

// WithFilters sets the filters used by the first load.
func WithFilters(f paging.Filters) Option { return func(o *options) { o.filters = f } }

// New creates a view named name (used in logs and metrics). pageSize falls back
// to paging.DefaultPageSize when it is not one of paging.PageSizes.
func New[T any](name string, load Loader[T], pageSize int, opts ...Option) *View[T] {
	o := options{notifier: notify.Discard{}, log: logger.Nop(), metrics: metrics.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if !paging.ValidPageSize(pageSize) {
		pageSize = paging.DefaultPageSize
	}
	return &View[T]{
		name:     name,
		load:     load,
		spec:     o.spec,
		want:     target{size: pageSize, filters: o.filters},
		notifier: o.notifier,
		log:      o.log.With("view", name),
		metrics:  o.metrics,
		state: State[T]{
			Items:    []T{},
			PageSize: pageSize,
			Filters:  o.filters,
		},
	}
}

// Snapshot returns a copy of the current state.
func (v *View[T]) Snapshot() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Items = append([]T(nil), v.state.Items...)
	return s
}

// Refresh re-fetches the current page with the current filters.
func (v *View[T]) Refresh(ctx context.Context) error {
	return v.fetch(ctx, func(s State[T]) (State[T], error) { return s, nil })
}

// SetFilters changes the filters and goes back to the first page. The page
// size is kept.
func (v *View[T]) SetFilters(ctx context.Context, f paging.Filters) error {
	return v.fetch(ctx, func(s State[T]) (State[T], error) {
		s.Filters = f
		s.Page = 0
		return s, nil
	})
}

// SetPage moves to page index page, keeping filters and page size.
func (v *View[T]) SetPage(ctx context.Context, page int) error {
	return v.fetch(ctx, func(s State[T]) (State[T], error) {
		if page < 0 {
			return s, apperrors.Precondition(fmt.Sprintf("invalid page %d", page))
		}
		s.Page = page
		return s, nil
	})
}

// NextPage moves forward one page if the current page reported a next one.
func (v *View[T]) NextPage(ctx context.Context) error {
	return v.fetch(ctx, func(s State[T]) (State[T], error) {
		if s.Loaded && !s.HasNextPage {
			return s, apperrors.Precondition("already on the last page")
		}
		s.Page++
		return s, nil
	})
}

// PrevPage moves back one page.
func (v *View[T]) PrevPage(ctx context.Context) error {
	return v.fetch(ctx, func(s State[T]) (State[T], error) {
		if s.Page == 0 {
			return s, apperrors.Precondition("already on the first page")
		}
		s.Page--
		return s, nil
	})
}

// SetPageSize changes the page size and goes back to the first page, keeping
// filters.
func (v *View[T]) SetPageSize(ctx context.Context, size int) error {
	return v.fetch(ctx, func(s State[T]) (State[T], error) {
		if !paging.ValidPageSize(size) {
			return s, apperrors.Precondition(fmt.Sprintf("page size must be one of %v", paging.PageSizes))
		}
		s.PageSize = size
		s.Page = 0
		return s, nil
	})
}

// fetch applies change to the newest requested page, size and filters, loads
// the resulting page and commits it only if no newer fetch started meanwhile.
// On failure the visible page, filters and page index stay as they were.
func (v *View[T]) fetch(ctx context.Context, change func(State[T]) (State[T], error)) error {
	v.mu.Lock()
	base := v.state
	base.Page, base.PageSize, base.Filters = v.want.page, v.want.size, v.want.filters
	next, err := change(base)
	if err == nil && v.spec != nil {
		err = v.spec.Validate(next.Filters)
	}
	if err != nil {
		v.mu.Unlock()
		v.notifier.Notify(notify.Warning, apperrors.UserMessage(err))
		return err
	}
	v.want = target{page: next.Page, size: next.PageSize, filters: next.Filters}
	v.gen++
	gen := v.gen
	v.pending++
	v.state.Loading = true
	v.mu.Unlock()

	req := paging.NewRequest(next.Page, next.PageSize, next.Filters)
	v.metrics.PageFetches.WithLabelValues(v.name).Inc()
	res, err := v.load(ctx, req)

	v.mu.Lock()
	v.pending--
	if gen != v.gen {
		// A newer fetch owns the view; it clears Loading when it resolves.
		// If it already has, make sure this late one does not turn it back on.
		if v.pending == 0 {
			v.state.Loading = false
		}
		v.mu.Unlock()
		v.metrics.StaleResponses.WithLabelValues(v.name).Inc()
		v.log.Debug("dropped stale page", "request", req.Signature())
		return ErrSuperseded
	}
	v.state.Loading = false
	if err != nil {
		v.want = target{page: v.state.Page, size: v.state.PageSize, filters: v.state.Filters}
		v.mu.Unlock()
		v.metrics.PageFetchErrors.WithLabelValues(v.name).Inc()
		v.log.Error(err, "page fetch failed", "request", req.Signature())
		if apperrors.Classify(err) != apperrors.ClassUnauthorized {
			v.notifier.Notify(notify.Error, apperrors.UserMessage(err))
		}
		return err
	}

	v.state.Items = res.Items
	v.state.HasNextPage = res.HasNextPage
	v.state.Total = res.Total
	v.state.Page = next.Page
	v.state.PageSize = next.PageSize
	v.state.Filters = next.Filters
	v.state.Loaded = true
	v.mu.Unlock()
	return nil
}
