package model

import (
	"github.com/google/uuid"
)

type Doctor struct {
	Base
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Specialty string    `db:"specialty" json:"specialty,omitempty"`
	Bio       string    `db:"bio" json:"bio,omitempty"`
	PhotoPath string    `db:"photo_path" json:"photo_path,omitempty"`
}

// DoctorProfile joins the doctor row with its user identity fields for
// the profile editor.
type DoctorProfile struct {
	Doctor
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}

// UpdateProfileRequest enumerates the fields the profile editor accepts.
type UpdateProfileRequest struct {
	Name      string  `json:"name" validate:"required,max=255"`
	Specialty *string `json:"specialty" validate:"omitempty,max=255"`
	Bio       *string `json:"bio" validate:"omitempty,max=4000"`
}

type UpdateEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type UpdatePasswordRequest struct {
	CurrentPassword      string `json:"current_password" validate:"required,min=6"`
	NewPassword          string `json:"new_password" validate:"required,min=6"`
	NewPasswordConfirmed string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}
