package rowedit

import (
	"context"
	"sync"

	"github.com/jwalitptl/clinic-admin/internal/notify"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// SaveFunc persists an edited working copy.
type SaveFunc[T any] func(ctx context.Context, working T) error

// Editor holds a detached working copy of one row. The original row and the
// list page are untouched until Save succeeds and the page is re-fetched.
type Editor[T any] struct {
	save     SaveFunc[T]
	refresh  Refresher
	notifier notify.Notifier

	mu      sync.Mutex
	working *T
	saving  bool
}

func NewEditor[T any](save SaveFunc[T], refresh Refresher, notifier notify.Notifier) *Editor[T] {
	return &Editor[T]{save: save, refresh: refresh, notifier: notifier}
}

// Begin opens the editor on a copy of row. Callers mutate the returned copy.
// T must not share mutable state with the row it was built from.
func (e *Editor[T]) Begin(row T) *T {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := row
	e.working = &cp
	return e.working
}

// Working returns the open working copy.
func (e *Editor[T]) Working() (*T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working, e.working != nil
}

// Cancel discards the working copy.
func (e *Editor[T]) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working = nil
}

// Save validates the working copy, sends it and re-fetches the page. On any
// failure the working copy stays open.
func (e *Editor[T]) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.working == nil {
		e.mu.Unlock()
		return apperrors.Precondition("nothing is being edited")
	}
	if e.saving {
		e.mu.Unlock()
		return ErrInFlight
	}
	working := *e.working
	e.saving = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.saving = false
		e.mu.Unlock()
	}()

	if err := checkStruct(working); err != nil {
		e.notifier.Notify(notify.Warning, apperrors.UserMessage(err))
		return err
	}
	if err := e.save(ctx, working); err != nil {
		notifyFailure(e.notifier, err)
		return err
	}

	e.mu.Lock()
	e.working = nil
	e.mu.Unlock()

	e.notifier.Notify(notify.Success, "Changes saved")
	return refreshPage(ctx, e.refresh)
}
