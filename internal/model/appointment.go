package model

import "time"

type Appointment struct {
	ID         int64      `json:"id"`
	DoctorID   int64      `json:"doctorId"`
	PatientID  int64      `json:"patientId"`
	Date       time.Time  `json:"date"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Approved reports whether the appointment carries an approval timestamp.
func (a Appointment) Approved() bool {
	return a.ApprovedAt != nil
}

// IsHistory reports whether the appointment date is already in the past.
func (a Appointment) IsHistory(now time.Time) bool {
	return a.Date.Before(now)
}

// AppointmentDraft is the working copy edited before an update. Both linked
// entities and the date must be chosen.
type AppointmentDraft struct {
	ID        int64      `json:"-"`
	DoctorID  int64      `json:"doctorId" validate:"required,gt=0"`
	PatientID int64      `json:"patientId" validate:"required,gt=0"`
	Date      *time.Time `json:"date" validate:"required"`
	Note      string     `json:"note"`
}

// Draft returns a detached working copy of the appointment.
func (a Appointment) Draft() AppointmentDraft {
	d := a.Date
	return AppointmentDraft{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Date:      &d,
		Note:      a.Note,
	}
}

type CreateAppointmentRequest struct {
	DoctorID  int64     `json:"doctorId" binding:"required"`
	PatientID int64     `json:"patientId" binding:"required"`
	Date      time.Time `json:"date" binding:"required"`
	Note      string    `json:"note"`
}

type UpdateAppointmentRequest struct {
	DoctorID   *int64     `json:"doctorId,omitempty"`
	PatientID  *int64     `json:"patientId,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	Note       *string    `json:"note,omitempty"`
}
