package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicware/reservation-api/internal/model"
	"github.com/clinicware/reservation-api/internal/repository"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
)

const reservationColumns = `
	id, clinic_id, doctor_id, user_id, scheduled_at, status, confirmed,
	symptom, memo, amount, pay_method, paid, paid_at,
	created_at, updated_at, deleted_at
`

// reservationTxStore implements repository.ReservationTxStore over either
// the pool or an open transaction.
type reservationTxStore struct {
	ext sqlx.ExtContext
}

func (r *reservationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return (&reservationTxStore{ext: r.db}).Get(ctx, id)
}

// WithTx runs fn against a transaction-scoped store. The transaction is
// committed when fn returns nil and rolled back on error or panic, so no
// partial write is ever visible to concurrent readers.
func (r *reservationRepository) WithTx(ctx context.Context, fn func(tx repository.ReservationTxStore) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&reservationTxStore{ext: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *reservationTxStore) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE id = $1 AND deleted_at IS NULL
	`
	var reservation model.Reservation
	err := sqlx.GetContext(ctx, s.ext, &reservation, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("reservation", err)
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &reservation, nil
}

func (s *reservationTxStore) Save(ctx context.Context, reservation *model.Reservation) error {
	query := `
		UPDATE reservations
		SET doctor_id = $1, scheduled_at = $2, status = $3, confirmed = $4,
			symptom = $5, memo = $6, amount = $7, pay_method = $8,
			paid = $9, paid_at = $10, updated_at = $11
		WHERE id = $12 AND deleted_at IS NULL
	`
	reservation.UpdatedAt = time.Now()

	result, err := s.ext.ExecContext(ctx, query,
		reservation.DoctorID,
		reservation.ScheduledAt,
		reservation.Status,
		reservation.Confirmed,
		reservation.Symptom,
		reservation.Memo,
		reservation.Amount,
		reservation.PayMethod,
		reservation.Paid,
		reservation.PaidAt,
		reservation.UpdatedAt,
		reservation.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("reservation", nil)
	}
	return nil
}

func (s *reservationTxStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE reservations
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := s.ext.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("reservation", nil)
	}
	return nil
}

func (s *reservationTxStore) UpdateUser(ctx context.Context, userID uuid.UUID, cs model.UserChangeSet) error {
	query := `
		UPDATE users
		SET name = COALESCE($1, name),
			kana = COALESCE($2, kana),
			phone = COALESCE($3, phone),
			email = COALESCE($4, email),
			updated_at = $5
		WHERE id = $6
	`
	result, err := s.ext.ExecContext(ctx, query, cs.Name, cs.Kana, cs.Phone, cs.Email, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("user", nil)
	}
	return nil
}

func (s *reservationTxStore) CreateOutboxEvent(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.ext.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *reservationRepository) List(ctx context.Context, filters *model.ReservationFilters, page model.Pagination) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE clinic_id = $1 AND deleted_at IS NULL
	`
	args := []interface{}{filters.ClinicID}
	argCount := 2

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}

	if filters.UserID != uuid.Nil {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, filters.UserID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if filters.Confirmed != nil {
		query += fmt.Sprintf(" AND confirmed = $%d", argCount)
		args = append(args, *filters.Confirmed)
		argCount++
	}

	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND scheduled_at >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}

	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND scheduled_at < $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY scheduled_at ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, page.PageSize, page.Offset())

	var reservations []*model.Reservation
	err := r.db.SelectContext(ctx, &reservations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func (r *reservationRepository) CountInfo(ctx context.Context, clinicID uuid.UUID) (*model.ReservationCountInfo, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'inprogress') AS inprogress,
			COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
		FROM reservations
		WHERE clinic_id = $1 AND deleted_at IS NULL
	`
	var info model.ReservationCountInfo
	err := r.db.GetContext(ctx, &info, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}
	return &info, nil
}
