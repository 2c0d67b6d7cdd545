package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/clinicware/reservation-api/internal/model"
	"github.com/clinicware/reservation-api/internal/repository"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
	"github.com/clinicware/reservation-api/pkg/logger"
)

// Event types written to the outbox on committed mutations.
const (
	EventReservationUpdated       = "RESERVATION_UPDATED"
	EventReservationPaid          = "RESERVATION_PAID"
	EventReservationStatusChanged = "RESERVATION_STATUS_CHANGED"
	EventReservationDeleted       = "RESERVATION_DELETED"
)

const (
	countCacheTTL     = 30 * time.Second
	countCacheCleanup = 5 * time.Minute
)

// Actor is the authenticated caller on whose behalf a mutation runs.
type Actor struct {
	UserID   uuid.UUID
	ClinicID uuid.UUID
}

// Policy decides whether an actor may touch a reservation. A denial
// short-circuits before any store write.
type Policy interface {
	CanModify(actor Actor, reservation *model.Reservation) bool
}

// ClinicPolicy allows staff to modify reservations of their own clinic only.
type ClinicPolicy struct{}

func (ClinicPolicy) CanModify(actor Actor, reservation *model.Reservation) bool {
	return actor.ClinicID != uuid.Nil && actor.ClinicID == reservation.ClinicID
}

// Service applies validated change-sets to reservations. Every mutation
// runs inside one transaction scope: the detail fields, status and payment
// fields all persist together or not at all.
type Service struct {
	repo       repository.ReservationRepository
	policy     Policy
	logger     *logger.Logger
	countCache *gocache.Cache
}

func NewService(repo repository.ReservationRepository, policy Policy, logger *logger.Logger) *Service {
	if policy == nil {
		policy = ClinicPolicy{}
	}
	return &Service{
		repo:       repo,
		policy:     policy,
		logger:     logger,
		countCache: gocache.New(countCacheTTL, countCacheCleanup),
	}
}

// Get fetches one reservation, enforcing the same policy as mutations.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Reservation, error) {
	reservation, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanModify(actor, reservation) {
		return nil, apperrors.Forbidden("reservation belongs to another clinic")
	}
	return reservation, nil
}

// UpdateDetails persists the change-set and advances status to inprogress
// in one atomic unit. An edit from the clinic screen always marks the
// reservation as being worked on.
func (s *Service) UpdateDetails(ctx context.Context, actor Actor, id uuid.UUID, req *model.UpdateReservationRequest) (*model.Reservation, error) {
	var updated *model.Reservation

	err := s.repo.WithTx(ctx, func(tx repository.ReservationTxStore) error {
		reservation, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanModify(actor, reservation) {
			return apperrors.Forbidden("reservation belongs to another clinic")
		}

		applyChangeSet(reservation, req)
		reservation.Status = model.ReservationStatusInProgress

		if err := tx.Save(ctx, reservation); err != nil {
			return err
		}
		if err := s.enqueueEvent(ctx, tx, EventReservationUpdated, reservation); err != nil {
			return err
		}

		updated = reservation
		return nil
	})
	if err != nil {
		return nil, s.failure(err, "could not update reservation")
	}
	return updated, nil
}

// UpdateDetailsWithUserInfo persists the change-set together with the
// patient identity fields. Unlike UpdateDetails it leaves status exactly
// as it was; the asymmetry is intentional.
func (s *Service) UpdateDetailsWithUserInfo(ctx context.Context, actor Actor, id uuid.UUID, req *model.UpdateReservationWithUserRequest) (*model.Reservation, error) {
	var updated *model.Reservation

	err := s.repo.WithTx(ctx, func(tx repository.ReservationTxStore) error {
		reservation, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanModify(actor, reservation) {
			return apperrors.Forbidden("reservation belongs to another clinic")
		}

		applyChangeSet(reservation, &req.UpdateReservationRequest)

		if err := tx.Save(ctx, reservation); err != nil {
			return err
		}

		cs := model.UserChangeSet{
			Name:  req.UserName,
			Kana:  req.UserKana,
			Phone: req.UserPhone,
		}
		if !cs.Empty() {
			if err := tx.UpdateUser(ctx, reservation.UserID, cs); err != nil {
				return err
			}
		}

		if err := s.enqueueEvent(ctx, tx, EventReservationUpdated, reservation); err != nil {
			return err
		}

		updated = reservation
		return nil
	})
	if err != nil {
		return nil, s.failure(err, "could not update reservation")
	}
	return updated, nil
}

// RecordPayment persists payment fields only. Status is never touched by
// a payment update.
func (s *Service) RecordPayment(ctx context.Context, actor Actor, id uuid.UUID, req *model.RecordPaymentRequest) (*model.Reservation, error) {
	var updated *model.Reservation

	err := s.repo.WithTx(ctx, func(tx repository.ReservationTxStore) error {
		reservation, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanModify(actor, reservation) {
			return apperrors.Forbidden("reservation belongs to another clinic")
		}

		reservation.Amount = req.Amount
		reservation.PayMethod = req.PayMethod
		reservation.Paid = req.Paid
		if req.Paid && reservation.PaidAt == nil {
			now := time.Now()
			reservation.PaidAt = &now
		}

		if err := tx.Save(ctx, reservation); err != nil {
			return err
		}
		if err := s.enqueueEvent(ctx, tx, EventReservationPaid, reservation); err != nil {
			return err
		}

		updated = reservation
		return nil
	})
	if err != nil {
		return nil, s.failure(err, "could not update reservation")
	}
	return updated, nil
}

// SetStatus sets the status directly. The value must belong to the closed
// enumeration but no transition table is enforced; callers may move a
// reservation to any status at any time.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status model.ReservationStatus) (*model.Reservation, error) {
	var updated *model.Reservation

	err := s.repo.WithTx(ctx, func(tx repository.ReservationTxStore) error {
		reservation, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		reservation.Status = status

		if err := tx.Save(ctx, reservation); err != nil {
			return err
		}
		if err := s.enqueueEvent(ctx, tx, EventReservationStatusChanged, reservation); err != nil {
			return err
		}

		updated = reservation
		return nil
	})
	if err != nil {
		return nil, s.failure(err, "could not update reservation")
	}
	return updated, nil
}

// Delete soft-deletes the reservation atomically.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(tx repository.ReservationTxStore) error {
		reservation, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !s.policy.CanModify(actor, reservation) {
			return apperrors.Forbidden("reservation belongs to another clinic")
		}

		if err := tx.SoftDelete(ctx, id); err != nil {
			return err
		}
		return s.enqueueEvent(ctx, tx, EventReservationDeleted, reservation)
	})
	if err != nil {
		return s.failure(err, "could not delete reservation")
	}
	return nil
}

// List returns reservations matching the filters, ordered by scheduled time.
func (s *Service) List(ctx context.Context, filters *model.ReservationFilters, page model.Pagination) ([]*model.Reservation, error) {
	page.Normalize()

	reservations, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// ListWithPayments returns the confirmed-only listing for the payments screen.
func (s *Service) ListWithPayments(ctx context.Context, filters *model.ReservationFilters, page model.Pagination) ([]*model.Reservation, error) {
	confirmed := true
	filters.Confirmed = &confirmed
	return s.List(ctx, filters, page)
}

// CountInfo returns per-status counts for the clinic dashboard. Counts
// are cached briefly since the dashboard polls.
func (s *Service) CountInfo(ctx context.Context, clinicID uuid.UUID) (*model.ReservationCountInfo, error) {
	key := clinicID.String()
	if cached, ok := s.countCache.Get(key); ok {
		return cached.(*model.ReservationCountInfo), nil
	}

	info, err := s.repo.CountInfo(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get count info: %w", err)
	}

	s.countCache.Set(key, info, gocache.DefaultExpiration)
	return info, nil
}

func (s *Service) enqueueEvent(ctx context.Context, tx repository.ReservationTxStore, eventType string, reservation *model.Reservation) error {
	payload, err := json.Marshal(reservation)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	now := time.Now()
	return tx.CreateOutboxEvent(ctx, &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// failure passes caller errors (not found, forbidden, validation) through
// and converts everything else to a generic message, logging the detail
// internally only.
func (s *Service) failure(err error, msg string) error {
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code != apperrors.ErrInternal {
		return appErr
	}
	s.logger.Error(err, msg)
	return apperrors.Internal(msg, err)
}

func applyChangeSet(reservation *model.Reservation, req *model.UpdateReservationRequest) {
	if req.DoctorID != nil {
		reservation.DoctorID = *req.DoctorID
	}
	if req.ScheduledAt != nil {
		reservation.ScheduledAt = *req.ScheduledAt
	}
	if req.Symptom != nil {
		reservation.Symptom = *req.Symptom
	}
	if req.Memo != nil {
		reservation.Memo = *req.Memo
	}
	if req.Confirmed != nil {
		reservation.Confirmed = *req.Confirmed
	}
}
