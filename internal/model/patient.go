package model

import (
	"strings"
	"time"
)

type Patient struct {
	ID        int64            `json:"id"`
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Email     string           `json:"email,omitempty"`
	Phone     string           `json:"phone,omitempty"`
	DoctorID  *int64           `json:"doctorId,omitempty"`
	BirthDate *time.Time       `json:"birthDate,omitempty"`
	Medicines []Medicine       `json:"medicines,omitempty"`
	Vaccines  []VaccineHistory `json:"vaccines,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

type CreatePatientRequest struct {
	FirstName string     `json:"firstName" binding:"required"`
	LastName  string     `json:"lastName" binding:"required"`
	Email     string     `json:"email" binding:"omitempty,email"`
	Phone     string     `json:"phone"`
	DoctorID  *int64     `json:"doctorId"`
	BirthDate *time.Time `json:"birthDate"`
}

type UpdatePatientRequest struct {
	FirstName *string    `json:"firstName,omitempty"`
	LastName  *string    `json:"lastName,omitempty"`
	Email     *string    `json:"email,omitempty" binding:"omitempty,email"`
	Phone     *string    `json:"phone,omitempty"`
	DoctorID  *int64     `json:"doctorId,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
}

// Medicine is one row of a patient's medication list. Optional fields are nil
// on the wire when empty.
type Medicine struct {
	ID        int64   `json:"id,omitempty"`
	Name      string  `json:"name" validate:"required"`
	Dosage    string  `json:"dosage" validate:"required"`
	Frequency *string `json:"frequency"`
	Note      *string `json:"note"`
}

// VaccineHistory is one vaccination entry of a patient.
type VaccineHistory struct {
	ID      int64   `json:"id,omitempty"`
	Vaccine string  `json:"vaccine" validate:"required"`
	Date    string  `json:"date" validate:"required"`
	Dose    *string `json:"dose"`
	Note    *string `json:"note"`
}

// Normalized trims every field and turns empty optional fields into nil.
func (m Medicine) Normalized() Medicine {
	return Medicine{
		ID:        m.ID,
		Name:      strings.TrimSpace(m.Name),
		Dosage:    strings.TrimSpace(m.Dosage),
		Frequency: optional(m.Frequency),
		Note:      optional(m.Note),
	}
}

// Normalized trims every field and turns empty optional fields into nil.
func (v VaccineHistory) Normalized() VaccineHistory {
	return VaccineHistory{
		ID:      v.ID,
		Vaccine: strings.TrimSpace(v.Vaccine),
		Date:    strings.TrimSpace(v.Date),
		Dose:    optional(v.Dose),
		Note:    optional(v.Note),
	}
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// Ptr is a small helper for building optional fields.
func Ptr[T any](v T) *T {
	return &v
}

func (m Medicine) RowID() int64 { return m.ID }

func (m Medicine) WithRowID(id int64) Medicine {
	m.ID = id
	return m
}

func (v VaccineHistory) RowID() int64 { return v.ID }

func (v VaccineHistory) WithRowID(id int64) VaccineHistory {
	v.ID = id
	return v
}
