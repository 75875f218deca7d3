package model

import "time"

type Doctor struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	Specialty string    `json:"specialty,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateDoctorRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Role      string `json:"role" binding:"required,oneof=user admin root"`
	Specialty string `json:"specialty"`
}

type UpdateDoctorRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Role      *string `json:"role,omitempty" binding:"omitempty,oneof=user admin root"`
	Specialty *string `json:"specialty,omitempty"`
	Password  *string `json:"password,omitempty" binding:"omitempty,min=8"`
}
