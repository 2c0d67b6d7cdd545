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

const doctorProfileQuery = `
	SELECT d.id, d.user_id, d.clinic_id, d.specialty, d.bio, d.photo_path,
		   d.created_at, d.updated_at, d.deleted_at,
		   u.name, u.email
	FROM doctors d
	JOIN users u ON u.id = d.user_id
`

type doctorTxStore struct {
	ext sqlx.ExtContext
}

func (r *doctorRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*model.DoctorProfile, error) {
	query := doctorProfileQuery + ` WHERE d.user_id = $1 AND d.deleted_at IS NULL`

	var profile model.DoctorProfile
	err := r.db.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, fmt.Errorf("failed to get doctor profile: %w", err)
	}
	return &profile, nil
}

func (r *doctorRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.DoctorProfile, error) {
	query := doctorProfileQuery + `
		WHERE d.clinic_id = $1 AND d.deleted_at IS NULL
		ORDER BY u.name ASC
	`
	var doctors []*model.DoctorProfile
	err := r.db.SelectContext(ctx, &doctors, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinic doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) UpdatePhoto(ctx context.Context, userID uuid.UUID, photoPath string) error {
	query := `
		UPDATE doctors
		SET photo_path = $1, updated_at = $2
		WHERE user_id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, photoPath, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update doctor photo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("doctor", nil)
	}
	return nil
}

func (r *doctorRepository) WithTx(ctx context.Context, fn func(tx repository.DoctorTxStore) error) error {
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

	if err := fn(&doctorTxStore{ext: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *doctorTxStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, user_id, clinic_id, specialty, bio, photo_path,
			   created_at, updated_at, deleted_at
		FROM doctors
		WHERE user_id = $1 AND deleted_at IS NULL
	`
	var doctor model.Doctor
	err := sqlx.GetContext(ctx, s.ext, &doctor, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (s *doctorTxStore) Save(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET specialty = $1, bio = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
	`
	doctor.UpdatedAt = time.Now()

	result, err := s.ext.ExecContext(ctx, query,
		doctor.Specialty,
		doctor.Bio,
		doctor.UpdatedAt,
		doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("doctor", nil)
	}
	return nil
}

func (s *doctorTxStore) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) error {
	query := `
		UPDATE users
		SET name = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.ext.ExecContext(ctx, query, name, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update user name: %w", err)
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

func (s *doctorTxStore) NameTaken(ctx context.Context, name string, excludeUserID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE name = $1 AND id != $2)`

	var taken bool
	err := sqlx.GetContext(ctx, s.ext, &taken, query, name, excludeUserID)
	if err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	return taken, nil
}
