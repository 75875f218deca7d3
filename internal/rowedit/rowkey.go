package rowedit

import (
	"fmt"

	"github.com/google/uuid"
)

// RowKey identifies a sub-collection row: either a row the server persisted
// (Saved) or a client-only row (Draft) with a temporary id.
type RowKey struct {
	id     int64
	tempID uuid.UUID
	draft  bool
}

// Saved is the key of a persisted row.
func Saved(id int64) RowKey {
	return RowKey{id: id}
}

// Draft returns a fresh key for an unsaved row.
func Draft() RowKey {
	return RowKey{tempID: uuid.New(), draft: true}
}

func (k RowKey) IsDraft() bool { return k.draft }

// ID returns the persisted id; ok is false for drafts.
func (k RowKey) ID() (id int64, ok bool) {
	if k.draft {
		return 0, false
	}
	return k.id, true
}

// TempID returns the temporary id; ok is false for saved rows.
func (k RowKey) TempID() (uuid.UUID, bool) {
	if !k.draft {
		return uuid.Nil, false
	}
	return k.tempID, true
}

func (k RowKey) String() string {
	if k.draft {
		return "draft:" + k.tempID.String()
	}
	return fmt.Sprintf("saved:%d", k.id)
}
