package rowedit

import (
	"context"
	"fmt"

	"github.com/jwalitptl/clinic-admin/internal/notify"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// ConfirmToken must be typed to confirm a deletion.
const ConfirmToken = "delete"

// DeleteFunc removes the row with id.
type DeleteFunc[ID comparable] func(ctx context.Context, id ID) error

type Deleter[ID comparable] struct {
	del      DeleteFunc[ID]
	refresh  Refresher
	notifier notify.Notifier
}

func NewDeleter[ID comparable](del DeleteFunc[ID], refresh Refresher, notifier notify.Notifier) *Deleter[ID] {
	return &Deleter[ID]{del: del, refresh: refresh, notifier: notifier}
}

// Delete removes id once confirm equals ConfirmToken. A mismatch sends no
// request. On failure the caller keeps its confirmation dialog open.
func (d *Deleter[ID]) Delete(ctx context.Context, id ID, confirm string) error {
	if confirm != ConfirmToken {
		msg := fmt.Sprintf("Type %q to confirm", ConfirmToken)
		d.notifier.Notify(notify.Warning, msg)
		return apperrors.Precondition(msg)
	}
	if err := d.del(ctx, id); err != nil {
		notifyFailure(d.notifier, err)
		return err
	}
	d.notifier.Notify(notify.Success, "Deleted")
	return refreshPage(ctx, d.refresh)
}
