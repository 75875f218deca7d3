package resources

import (
	"context"
	"time"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/paging"
)

const AppointmentsEndpoint = "/appointments"

// Appointment list types.
const (
	AppointmentsUpcoming = "upcoming"
	AppointmentsHistory  = "history"
)

var AppointmentFilters = paging.FilterSpec{
	Keys:  []paging.Key{paging.KeyType, paging.KeyDoctorID, paging.KeyPatientID},
	Types: []string{AppointmentsUpcoming, AppointmentsHistory},
}

type Appointments struct {
	*Resource[model.Appointment, int64]
}

func NewAppointments(api API) *Appointments {
	return &Appointments{newResource[model.Appointment, int64](api, AppointmentsEndpoint, AppointmentFilters)}
}

func (a *Appointments) Create(ctx context.Context, req model.CreateAppointmentRequest) (int64, error) {
	var out model.CreatedID
	if err := a.api.Post(ctx, a.endpoint, req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (a *Appointments) Update(ctx context.Context, id int64, req model.UpdateAppointmentRequest) error {
	return a.api.Put(ctx, a.path(id), req, nil)
}

// SaveDraft writes an edited working copy back.
func (a *Appointments) SaveDraft(ctx context.Context, d model.AppointmentDraft) error {
	note := d.Note
	return a.Update(ctx, d.ID, model.UpdateAppointmentRequest{
		DoctorID:  &d.DoctorID,
		PatientID: &d.PatientID,
		Date:      d.Date,
		Note:      &note,
	})
}

// Approve stamps the appointment as approved at the given time.
func (a *Appointments) Approve(ctx context.Context, id int64, at time.Time) error {
	at = at.UTC()
	return a.Update(ctx, id, model.UpdateAppointmentRequest{ApprovedAt: &at})
}
