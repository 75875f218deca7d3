package model

import "time"

type Question struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patientId"`
	DoctorID  *int64    `json:"doctorId,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Answer    *string   `json:"answer,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Answered reports whether a doctor has replied.
func (q Question) Answered() bool {
	return q.Answer != nil && *q.Answer != ""
}

type AnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}
