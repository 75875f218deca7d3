package resources

import (
	"context"
	"strings"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/paging"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

const DoctorsEndpoint = "/doctors"

var DoctorFilters = paging.FilterSpec{
	Keys:  []paging.Key{paging.KeyType, paging.KeySearch},
	Types: []string{"user", "admin", "root"},
}

type Doctors struct {
	*Resource[model.Doctor, int64]
}

func NewDoctors(api API) *Doctors {
	return &Doctors{newResource[model.Doctor, int64](api, DoctorsEndpoint, DoctorFilters)}
}

func (d *Doctors) Create(ctx context.Context, req model.CreateDoctorRequest) (int64, error) {
	var out model.CreatedID
	if err := d.api.Post(ctx, d.endpoint, req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (d *Doctors) Update(ctx context.Context, id int64, req model.UpdateDoctorRequest) error {
	return d.api.Put(ctx, d.path(id), req, nil)
}

// ChangePassword sets a new password once the confirmation matches.
func (d *Doctors) ChangePassword(ctx context.Context, id int64, password, confirm string) error {
	if strings.TrimSpace(password) == "" {
		return apperrors.Precondition("password is required")
	}
	if password != confirm {
		return apperrors.Precondition("passwords do not match")
	}
	return d.Update(ctx, id, model.UpdateDoctorRequest{Password: &password})
}
