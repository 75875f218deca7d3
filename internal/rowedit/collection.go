package rowedit

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwalitptl/clinic-admin/internal/notify"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// Item is a sub-collection value (Medicine, VaccineHistory).
type Item[T any] interface {
	// Normalized trims fields and maps empty optional fields to nil.
	Normalized() T
	RowID() int64
	WithRowID(id int64) T
}

// Row is one row of an editable sub-collection.
type Row[T any] struct {
	Key   RowKey
	Value T
	// New is set while an added row has not been committed once.
	New     bool
	Editing bool
	before  T
}

// IsNew reports whether the row was added and never committed.
func (r Row[T]) IsNew() bool { return r.New }

// BatchSaveFunc replaces the whole sub-collection on the server and returns
// the persisted rows.
type BatchSaveFunc[T any] func(ctx context.Context, items []T) ([]T, error)

// Collection is an editable sub-collection with a single rollback point: the
// rows as they were after the last load or successful save.
type Collection[T Item[T]] struct {
	save     BatchSaveFunc[T]
	notifier notify.Notifier

	mu       sync.Mutex
	rows     []Row[T]
	snapshot []Row[T]
	saving   bool
}

// NewCollection starts an edit session over the persisted items.
func NewCollection[T Item[T]](items []T, save BatchSaveFunc[T], notifier notify.Notifier) *Collection[T] {
	c := &Collection[T]{save: save, notifier: notifier}
	c.rows = savedRows(items)
	c.snapshot = cloneRows(c.rows)
	return c
}

func savedRows[T Item[T]](items []T) []Row[T] {
	rows := make([]Row[T], 0, len(items))
	for _, it := range items {
		rows = append(rows, Row[T]{Key: Saved(it.RowID()), Value: it})
	}
	return rows
}

func cloneRows[T any](rows []Row[T]) []Row[T] {
	return append([]Row[T](nil), rows...)
}

// Rows returns a copy of the current rows.
func (c *Collection[T]) Rows() []Row[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneRows(c.rows)
}

// Values returns the current row values in order.
func (c *Collection[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, 0, len(c.rows))
	for _, r := range c.rows {
		out = append(out, r.Value)
	}
	return out
}

// AddDraft appends a new row in edit mode and returns its key.
func (c *Collection[T]) AddDraft(value T) RowKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := Draft()
	c.rows = append(c.rows, Row[T]{Key: key, Value: value, New: true, Editing: true})
	return key
}

// BeginEdit puts the row in edit mode.
func (c *Collection[T]) BeginEdit(key RowKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, err := c.find(key)
	if err != nil {
		return err
	}
	if !c.rows[i].Editing {
		c.rows[i].before = c.rows[i].Value
		c.rows[i].Editing = true
	}
	return nil
}

// CommitEdit stores value in the row and leaves edit mode. The change is local
// until Save.
func (c *Collection[T]) CommitEdit(key RowKey, value T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, err := c.find(key)
	if err != nil {
		return err
	}
	c.rows[i].Value = value
	c.rows[i].Editing = false
	c.rows[i].New = false
	return nil
}

// CancelEdit leaves edit mode without keeping changes. A row that was never
// committed is removed.
func (c *Collection[T]) CancelEdit(key RowKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, err := c.find(key)
	if err != nil {
		return err
	}
	if c.rows[i].New {
		c.rows = append(c.rows[:i], c.rows[i+1:]...)
		return nil
	}
	if c.rows[i].Editing {
		c.rows[i].Value = c.rows[i].before
		c.rows[i].Editing = false
	}
	return nil
}

// Remove drops the row locally.
func (c *Collection[T]) Remove(key RowKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, err := c.find(key)
	if err != nil {
		return err
	}
	c.rows = append(c.rows[:i], c.rows[i+1:]...)
	return nil
}

// Save sends the whole collection. Nothing is sent if any row is new, being
// edited, or misses a required field. If the server rejects the batch every
// row reverts to the last saved state.
func (c *Collection[T]) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return ErrInFlight
	}
	batch, err := c.buildBatch()
	if err != nil {
		c.mu.Unlock()
		c.notifier.Notify(notify.Warning, apperrors.UserMessage(err))
		return err
	}
	c.saving = true
	c.mu.Unlock()

	saved, err := c.save(ctx, batch)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false
	if err != nil {
		c.rows = cloneRows(c.snapshot)
		notifyFailure(c.notifier, err)
		return err
	}
	c.rows = savedRows(saved)
	c.snapshot = cloneRows(c.rows)
	c.notifier.Notify(notify.Success, "Changes saved")
	return nil
}

// buildBatch must be called with mu held.
func (c *Collection[T]) buildBatch() ([]T, error) {
	batch := make([]T, 0, len(c.rows))
	for i, r := range c.rows {
		if r.New || r.Editing {
			return nil, apperrors.Precondition("Finish or cancel the row being edited before saving")
		}
		v := r.Value.Normalized()
		if err := checkStruct(v); err != nil {
			return nil, apperrors.Precondition(fmt.Sprintf("Row %d: %s", i+1, apperrors.UserMessage(err)))
		}
		if id, ok := r.Key.ID(); ok {
			v = v.WithRowID(id)
		} else {
			v = v.WithRowID(0)
		}
		batch = append(batch, v)
	}
	return batch, nil
}

func (c *Collection[T]) find(key RowKey) (int, error) {
	for i, r := range c.rows {
		if r.Key == key {
			return i, nil
		}
	}
	return -1, apperrors.Precondition(fmt.Sprintf("row %s not found", key))
}
