// Package rowedit implements the row actions of resource tables: approve,
// edit, delete, and batch saving of editable sub-collections.
package rowedit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jwalitptl/clinic-admin/internal/listview"
	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/notify"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// ErrInFlight is returned when the same row action is already running.
var ErrInFlight = errors.New("request already in progress")

// Refresher re-fetches the page a row belongs to.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ApproveFunc sends the approval timestamp of one appointment.
type ApproveFunc func(ctx context.Context, id int64, at time.Time) error

type Approver struct {
	approve  ApproveFunc
	refresh  Refresher
	notifier notify.Notifier
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewApprover(approve ApproveFunc, refresh Refresher, notifier notify.Notifier) *Approver {
	return &Approver{
		approve:  approve,
		refresh:  refresh,
		notifier: notifier,
		now:      time.Now,
		inFlight: make(map[int64]struct{}),
	}
}

// Busy reports whether an approval for id is running; the approve control is
// disabled while it is.
func (a *Approver) Busy(id int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.inFlight[id]
	return ok
}

// Approve stamps appt as approved and re-fetches the current page. Already
// approved and past appointments are rejected before any request.
func (a *Approver) Approve(ctx context.Context, appt model.Appointment) error {
	now := a.now()
	if appt.Approved() {
		return a.reject("Appointment is already approved")
	}
	if appt.IsHistory(now) {
		return a.reject("Past appointments cannot be approved")
	}

	a.mu.Lock()
	if _, busy := a.inFlight[appt.ID]; busy {
		a.mu.Unlock()
		return ErrInFlight
	}
	a.inFlight[appt.ID] = struct{}{}
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.inFlight, appt.ID)
		a.mu.Unlock()
	}()

	if err := a.approve(ctx, appt.ID, now); err != nil {
		notifyFailure(a.notifier, err)
		return err
	}
	a.notifier.Notify(notify.Success, "Appointment approved")
	return refreshPage(ctx, a.refresh)
}

func (a *Approver) reject(msg string) error {
	a.notifier.Notify(notify.Warning, msg)
	return apperrors.Precondition(msg)
}

func notifyFailure(n notify.Notifier, err error) {
	if apperrors.Classify(err) == apperrors.ClassUnauthorized {
		return
	}
	n.Notify(notify.Error, apperrors.UserMessage(err))
}

// refreshPage ignores a refresh that a newer fetch superseded.
func refreshPage(ctx context.Context, r Refresher) error {
	if r == nil {
		return nil
	}
	err := r.Refresh(ctx)
	if err != nil && errors.Is(err, listview.ErrSuperseded) {
		return nil
	}
	return err
}
