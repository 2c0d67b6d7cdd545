package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusPending    ReservationStatus = "pending"
	ReservationStatusInProgress ReservationStatus = "inprogress"
	ReservationStatusConfirmed  ReservationStatus = "confirmed"
	ReservationStatusCompleted  ReservationStatus = "completed"
	ReservationStatusCancelled  ReservationStatus = "cancelled"
)

// ParseReservationStatus rejects values outside the closed enumeration.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch status := ReservationStatus(s); status {
	case ReservationStatusPending,
		ReservationStatusInProgress,
		ReservationStatusConfirmed,
		ReservationStatusCompleted,
		ReservationStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown reservation status %q", s)
	}
}

type Reservation struct {
	Base
	ClinicID    uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	DoctorID    uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	UserID      uuid.UUID         `db:"user_id" json:"user_id"`
	ScheduledAt time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Status      ReservationStatus `db:"status" json:"status"`
	Confirmed   bool              `db:"confirmed" json:"confirmed"`
	Symptom     string            `db:"symptom" json:"symptom,omitempty"`
	Memo        string            `db:"memo" json:"memo,omitempty"`
	Amount      int64             `db:"amount" json:"amount"`
	PayMethod   string            `db:"pay_method" json:"pay_method,omitempty"`
	Paid        bool              `db:"paid" json:"paid"`
	PaidAt      *time.Time        `db:"paid_at" json:"paid_at,omitempty"`
}

// UpdateReservationRequest enumerates the detail fields a clinic may change.
// Nil fields are left untouched.
type UpdateReservationRequest struct {
	DoctorID    *uuid.UUID `json:"doctor_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Symptom     *string    `json:"symptom" validate:"omitempty,max=2000"`
	Memo        *string    `json:"memo" validate:"omitempty,max=2000"`
	Confirmed   *bool      `json:"confirmed"`
}

// UpdateReservationWithUserRequest additionally carries the patient
// identity fields persisted alongside the reservation.
type UpdateReservationWithUserRequest struct {
	UpdateReservationRequest
	UserName  *string `json:"user_name" validate:"omitempty,max=255"`
	UserKana  *string `json:"user_kana" validate:"omitempty,max=255"`
	UserPhone *string `json:"user_phone" validate:"omitempty,max=32"`
}

// RecordPaymentRequest carries payment fields only; status is never part
// of a payment update.
type RecordPaymentRequest struct {
	Amount    int64  `json:"amount" validate:"required,gte=0"`
	PayMethod string `json:"pay_method" validate:"required,oneof=cash card transfer"`
	Paid      bool   `json:"paid"`
}

type ReservationFilters struct {
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	UserID    uuid.UUID
	Status    ReservationStatus
	Confirmed *bool
	StartDate time.Time
	EndDate   time.Time
}

// ReservationCountInfo aggregates per-status counts for the clinic dashboard.
type ReservationCountInfo struct {
	Total      int64 `db:"total" json:"total"`
	Pending    int64 `db:"pending" json:"pending"`
	InProgress int64 `db:"inprogress" json:"inprogress"`
	Confirmed  int64 `db:"confirmed" json:"confirmed"`
	Completed  int64 `db:"completed" json:"completed"`
	Cancelled  int64 `db:"cancelled" json:"cancelled"`
}
