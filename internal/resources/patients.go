package resources

import (
	"context"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/paging"
)

const PatientsEndpoint = "/patients"

var PatientFilters = paging.FilterSpec{
	Keys: []paging.Key{paging.KeySearch, paging.KeyDoctorID},
}

type Patients struct {
	*Resource[model.Patient, int64]
}

func NewPatients(api API) *Patients {
	return &Patients{newResource[model.Patient, int64](api, PatientsEndpoint, PatientFilters)}
}

// All returns every patient in one unpaged request. It feeds the local
// search index.
func (p *Patients) All(ctx context.Context) ([]model.Patient, error) {
	return p.fetch(ctx, p.endpoint, nil)
}

func (p *Patients) Create(ctx context.Context, req model.CreatePatientRequest) (int64, error) {
	var out model.CreatedID
	if err := p.api.Post(ctx, p.endpoint, req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (p *Patients) Update(ctx context.Context, id int64, req model.UpdatePatientRequest) error {
	return p.api.Put(ctx, p.path(id), req, nil)
}

func (p *Patients) Medicines(ctx context.Context, id int64) ([]model.Medicine, error) {
	var out []model.Medicine
	err := p.api.Get(ctx, p.path(id, "medicines"), nil, &out)
	return out, err
}

// SaveMedicines replaces the whole medicine list and returns it with the IDs
// the server assigned.
func (p *Patients) SaveMedicines(ctx context.Context, id int64, items []model.Medicine) ([]model.Medicine, error) {
	var out []model.Medicine
	err := p.api.Put(ctx, p.path(id, "medicines"), items, &out)
	return out, err
}

func (p *Patients) Vaccines(ctx context.Context, id int64) ([]model.VaccineHistory, error) {
	var out []model.VaccineHistory
	err := p.api.Get(ctx, p.path(id, "vaccines"), nil, &out)
	return out, err
}

func (p *Patients) SaveVaccines(ctx context.Context, id int64, items []model.VaccineHistory) ([]model.VaccineHistory, error) {
	var out []model.VaccineHistory
	err := p.api.Put(ctx, p.path(id, "vaccines"), items, &out)
	return out, err
}
