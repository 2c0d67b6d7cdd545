package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/reservation-api/internal/model"
)

// All repository interfaces in one file
type (
	// ReservationTxStore is the reservation store as seen from inside a
	// transaction. Every write issued through it commits or rolls back
	// with the enclosing WithTx scope.
	ReservationTxStore interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
		Save(ctx context.Context, reservation *model.Reservation) error
		SoftDelete(ctx context.Context, id uuid.UUID) error
		UpdateUser(ctx context.Context, userID uuid.UUID, cs model.UserChangeSet) error
		CreateOutboxEvent(ctx context.Context, event *model.OutboxEvent) error
	}

	// ReservationRepository handles reservation persistence. Mutations go
	// through WithTx so detail, status and payment fields are never
	// observable in a partially updated state.
	ReservationRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
		List(ctx context.Context, filters *model.ReservationFilters, page model.Pagination) ([]*model.Reservation, error)
		CountInfo(ctx context.Context, clinicID uuid.UUID) (*model.ReservationCountInfo, error)
		WithTx(ctx context.Context, fn func(tx ReservationTxStore) error) error
	}

	// DoctorTxStore scopes doctor profile writes to one transaction.
	DoctorTxStore interface {
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error)
		Save(ctx context.Context, doctor *model.Doctor) error
		UpdateUserName(ctx context.Context, userID uuid.UUID, name string) error
		NameTaken(ctx context.Context, name string, excludeUserID uuid.UUID) (bool, error)
	}

	DoctorRepository interface {
		GetProfile(ctx context.Context, userID uuid.UUID) (*model.DoctorProfile, error)
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.DoctorProfile, error)
		UpdatePhoto(ctx context.Context, userID uuid.UUID, photoPath string) error
		WithTx(ctx context.Context, fn func(tx DoctorTxStore) error) error
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
		UpdateEmail(ctx context.Context, id uuid.UUID, email string) error
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	}

	OutboxRepository interface {
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
