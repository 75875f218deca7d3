package rowedit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-admin/internal/listview"
	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/notify"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

type countingRefresher struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.err
}

func (r *countingRefresher) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestApprover(fn ApproveFunc) (*Approver, *countingRefresher, *notify.Recorder) {
	ref := &countingRefresher{}
	rec := &notify.Recorder{}
	a := NewApprover(fn, ref, rec)
	a.now = func() time.Time { return fixedNow }
	return a, ref, rec
}

func TestApproveSendsTimestampAndRefreshes(t *testing.T) {
	var gotID int64
	var gotAt time.Time
	a, ref, rec := newTestApprover(func(_ context.Context, id int64, at time.Time) error {
		gotID, gotAt = id, at
		return nil
	})

	appt := model.Appointment{ID: 5, Date: fixedNow.Add(24 * time.Hour)}
	require.NoError(t, a.Approve(context.Background(), appt))

	assert.Equal(t, int64(5), gotID)
	assert.Equal(t, fixedNow, gotAt)
	assert.Equal(t, 1, ref.calls())
	last, _ := rec.Last()
	assert.Equal(t, notify.Success, last.Level)
	assert.False(t, a.Busy(5))
}

func TestApproveRejectsApprovedAndHistory(t *testing.T) {
	called := false
	a, ref, _ := newTestApprover(func(context.Context, int64, time.Time) error {
		called = true
		return nil
	})

	approvedAt := fixedNow.Add(-time.Hour)
	tests := []model.Appointment{
		{ID: 1, Date: fixedNow.Add(time.Hour), ApprovedAt: &approvedAt},
		{ID: 2, Date: fixedNow.Add(-time.Hour)},
	}
	for _, appt := range tests {
		err := a.Approve(context.Background(), appt)
		require.Error(t, err)
		assert.Equal(t, apperrors.ClassPrecondition, apperrors.Classify(err))
	}
	assert.False(t, called)
	assert.Zero(t, ref.calls())
}

func TestApproveBlocksRepeatedClicks(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	a, _, _ := newTestApprover(func(context.Context, int64, time.Time) error {
		calls++
		close(started)
		<-release
		return nil
	})
	appt := model.Appointment{ID: 9, Date: fixedNow.Add(time.Hour)}

	done := make(chan error, 1)
	go func() { done <- a.Approve(context.Background(), appt) }()
	<-started

	assert.True(t, a.Busy(9))
	assert.ErrorIs(t, a.Approve(context.Background(), appt), ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
	assert.False(t, a.Busy(9))
}

func TestApproveFailureNotifiesAndSkipsRefresh(t *testing.T) {
	a, ref, rec := newTestApprover(func(context.Context, int64, time.Time) error {
		return apperrors.FromStatus(422, "Invalid date")
	})

	err := a.Approve(context.Background(), model.Appointment{ID: 3, Date: fixedNow.Add(time.Hour)})
	require.Error(t, err)
	assert.Zero(t, ref.calls())
	last, _ := rec.Last()
	assert.Equal(t, notify.Notification{Level: notify.Error, Message: "Invalid date"}, last)
	assert.False(t, a.Busy(3))
}

func TestApproveIgnoresSupersededRefresh(t *testing.T) {
	a, ref, _ := newTestApprover(func(context.Context, int64, time.Time) error { return nil })
	ref.err = listview.ErrSuperseded
	assert.NoError(t, a.Approve(context.Background(), model.Appointment{ID: 4, Date: fixedNow.Add(time.Hour)}))
}

func TestEditorSaveValidatesAssociations(t *testing.T) {
	saved := 0
	ref := &countingRefresher{}
	rec := &notify.Recorder{}
	e := NewEditor[model.AppointmentDraft](func(context.Context, model.AppointmentDraft) error {
		saved++
		return nil
	}, ref, rec)

	appt := model.Appointment{ID: 1, DoctorID: 2, PatientID: 3, Date: fixedNow}
	w := e.Begin(appt.Draft())
	w.PatientID = 0
	w.Date = nil

	err := e.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassPrecondition, apperrors.Classify(err))
	assert.Contains(t, err.Error(), "patientId")
	assert.Contains(t, err.Error(), "date")
	assert.Zero(t, saved)

	_, open := e.Working()
	assert.True(t, open, "working copy stays open after a failed save")

	w.PatientID = 3
	d := fixedNow.Add(48 * time.Hour)
	w.Date = &d
	require.NoError(t, e.Save(context.Background()))
	assert.Equal(t, 1, saved)
	assert.Equal(t, 1, ref.calls())
	_, open = e.Working()
	assert.False(t, open)
}

func TestEditorCancelLeavesOriginalUntouched(t *testing.T) {
	ref := &countingRefresher{}
	e := NewEditor[model.AppointmentDraft](func(context.Context, model.AppointmentDraft) error {
		t.Fatal("save must not be called")
		return nil
	}, ref, notify.Discard{})

	appt := model.Appointment{ID: 1, DoctorID: 2, PatientID: 3, Date: fixedNow, Note: "first visit"}
	w := e.Begin(appt.Draft())
	w.Note = "changed"
	*w.Date = fixedNow.Add(time.Hour)
	e.Cancel()

	assert.Equal(t, "first visit", appt.Note)
	assert.Equal(t, fixedNow, appt.Date)
	assert.Zero(t, ref.calls())
	assert.Error(t, e.Save(context.Background()))
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	deleted := 0
	ref := &countingRefresher{}
	rec := &notify.Recorder{}
	d := NewDeleter[int64](func(context.Context, int64) error {
		deleted++
		return nil
	}, ref, rec)

	err := d.Delete(context.Background(), 7, "dlete")
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassPrecondition, apperrors.Classify(err))
	assert.Zero(t, deleted)
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Warning, last.Level)

	require.NoError(t, d.Delete(context.Background(), 7, ConfirmToken))
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, ref.calls())
}

func TestDeleteFailureKeepsState(t *testing.T) {
	ref := &countingRefresher{}
	rec := &notify.Recorder{}
	d := NewDeleter[string](func(context.Context, string) error {
		return apperrors.FromStatus(403, "You cannot delete published content")
	}, ref, rec)

	err := d.Delete(context.Background(), "about-us", "delete")
	require.Error(t, err)
	assert.Zero(t, ref.calls())
	last, _ := rec.Last()
	assert.Equal(t, "You cannot delete published content", last.Message)
}

func TestRowKey(t *testing.T) {
	s := Saved(4)
	id, ok := s.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(4), id)
	assert.False(t, s.IsDraft())

	d := Draft()
	assert.True(t, d.IsDraft())
	_, ok = d.ID()
	assert.False(t, ok)
	tmp, ok := d.TempID()
	assert.True(t, ok)
	assert.NotEqual(t, uuid.Nil, tmp)
	assert.NotEqual(t, d, Draft())
}

type batchServer struct {
	calls  int
	got    []model.Medicine
	err    error
	nextID int64
}

func (b *batchServer) save(_ context.Context, items []model.Medicine) ([]model.Medicine, error) {
	b.calls++
	b.got = items
	if b.err != nil {
		return nil, b.err
	}
	out := make([]model.Medicine, len(items))
	for i, m := range items {
		if m.ID == 0 {
			b.nextID++
			m.ID = 100 + b.nextID
		}
		out[i] = m
	}
	return out, nil
}

func existingMedicines() []model.Medicine {
	return []model.Medicine{
		{ID: 1, Name: "Ibuprofen", Dosage: "200mg", Frequency: model.Ptr("2x daily")},
		{ID: 2, Name: "Vitamin D", Dosage: "1000IU"},
	}
}

func TestCollectionRejectsNewRowWithoutRequest(t *testing.T) {
	srv := &batchServer{}
	rec := &notify.Recorder{}
	c := NewCollection(existingMedicines(), srv.save, rec)

	c.AddDraft(model.Medicine{Name: "Aspirin", Dosage: "100mg"})
	before := c.Rows()

	err := c.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ClassPrecondition, apperrors.Classify(err))
	assert.Zero(t, srv.calls)
	assert.Equal(t, before, c.Rows())
	_, ok := rec.Last()
	assert.True(t, ok)
}

func TestCollectionRejectsRowMidEdit(t *testing.T) {
	srv := &batchServer{}
	c := NewCollection(existingMedicines(), srv.save, notify.Discard{})

	require.NoError(t, c.BeginEdit(Saved(1)))
	require.Error(t, c.Save(context.Background()))
	assert.Zero(t, srv.calls)
}

func TestCollectionRejectsBlankRequiredField(t *testing.T) {
	srv := &batchServer{}
	c := NewCollection(existingMedicines(), srv.save, notify.Discard{})

	key := c.AddDraft(model.Medicine{})
	require.NoError(t, c.CommitEdit(key, model.Medicine{Name: "   ", Dosage: "5mg"}))

	err := c.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
	assert.Zero(t, srv.calls)
}

func TestCollectionSaveNormalizesAndAssignsIDs(t *testing.T) {
	srv := &batchServer{}
	c := NewCollection(existingMedicines(), srv.save, notify.Discard{})

	key := c.AddDraft(model.Medicine{})
	require.NoError(t, c.CommitEdit(key, model.Medicine{
		Name:      " Aspirin ",
		Dosage:    "100mg",
		Frequency: model.Ptr("  "),
		Note:      model.Ptr(" after meals "),
	}))

	require.NoError(t, c.Save(context.Background()))
	require.Len(t, srv.got, 3)

	sent := srv.got[2]
	assert.Equal(t, int64(0), sent.ID, "drafts are sent without an id")
	assert.Equal(t, "Aspirin", sent.Name)
	assert.Nil(t, sent.Frequency)
	require.NotNil(t, sent.Note)
	assert.Equal(t, "after meals", *sent.Note)
	assert.Equal(t, int64(1), srv.got[0].ID)

	rows := c.Rows()
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.False(t, r.Key.IsDraft())
	}
	id, _ := rows[2].Key.ID()
	assert.Equal(t, int64(101), id)
}

func TestCollectionRevertsToSnapshotOnServerRejection(t *testing.T) {
	srv := &batchServer{}
	rec := &notify.Recorder{}
	c := NewCollection(existingMedicines(), srv.save, rec)
	ctx := context.Background()

	// first successful save moves the rollback point
	require.NoError(t, c.BeginEdit(Saved(2)))
	require.NoError(t, c.CommitEdit(Saved(2), model.Medicine{ID: 2, Name: "Vitamin D3", Dosage: "2000IU"}))
	require.NoError(t, c.Save(ctx))
	saved := c.Values()

	require.NoError(t, c.Remove(Saved(1)))
	key := c.AddDraft(model.Medicine{})
	require.NoError(t, c.CommitEdit(key, model.Medicine{Name: "Aspirin", Dosage: "100mg"}))

	srv.err = apperrors.FromStatus(422, "Unknown medicine")
	err := c.Save(ctx)
	require.Error(t, err)

	assert.Equal(t, saved, c.Values())
	last, _ := rec.Last()
	assert.Equal(t, "Unknown medicine", last.Message)
}

func TestCollectionCancelEdit(t *testing.T) {
	c := NewCollection(existingMedicines(), (&batchServer{}).save, notify.Discard{})

	key := c.AddDraft(model.Medicine{Name: "x"})
	require.NoError(t, c.CancelEdit(key))
	assert.Len(t, c.Rows(), 2)

	require.NoError(t, c.BeginEdit(Saved(1)))
	require.NoError(t, c.CancelEdit(Saved(1)))
	rows := c.Rows()
	assert.False(t, rows[0].Editing)
	assert.Equal(t, "Ibuprofen", rows[0].Value.Name)

	assert.Error(t, c.BeginEdit(Saved(99)))
}

func TestVaccineCollection(t *testing.T) {
	var got []model.VaccineHistory
	save := func(_ context.Context, items []model.VaccineHistory) ([]model.VaccineHistory, error) {
		got = items
		return nil, errors.New("connection reset")
	}
	c := NewCollection([]model.VaccineHistory{{ID: 3, Vaccine: "MMR", Date: "2020-01-02"}}, save, notify.Discard{})

	key := c.AddDraft(model.VaccineHistory{})
	require.NoError(t, c.CommitEdit(key, model.VaccineHistory{Vaccine: "Tetanus", Date: "2025-05-05", Dose: model.Ptr("")}))
	require.Error(t, c.Save(context.Background()))

	require.Len(t, got, 2)
	assert.Nil(t, got[1].Dose)
	assert.Len(t, c.Rows(), 1, "rows revert after the failed save")
}
