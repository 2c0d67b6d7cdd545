package doctor

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/clinicware/reservation-api/internal/model"
	"github.com/clinicware/reservation-api/internal/repository"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
	"github.com/clinicware/reservation-api/pkg/logger"
	"github.com/clinicware/reservation-api/pkg/storage"
)

const profilePhotoDir = "doctor/profile"

// Service manages doctor profiles. Profile and display name changes span
// the doctors and users tables and commit together.
type Service struct {
	repo    repository.DoctorRepository
	storage storage.Storage
	logger  *logger.Logger
}

func NewService(repo repository.DoctorRepository, storage storage.Storage, logger *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		storage: storage,
		logger:  logger,
	}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*model.DoctorProfile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.DoctorProfile, error) {
	doctors, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinic doctors: %w", err)
	}
	return doctors, nil
}

// UpdateProfile persists the doctor fields and the user display name in
// one transaction. A duplicate name rolls everything back and surfaces a
// field-keyed validation error.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.DoctorProfile, error) {
	err := s.repo.WithTx(ctx, func(tx repository.DoctorTxStore) error {
		doctor, err := tx.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}

		taken, err := tx.NameTaken(ctx, req.Name, userID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Validation("the given data was invalid", map[string][]string{
				"name": {"this name is already in use"},
			})
		}

		if req.Specialty != nil {
			doctor.Specialty = *req.Specialty
		}
		if req.Bio != nil {
			doctor.Bio = *req.Bio
		}

		if err := tx.Save(ctx, doctor); err != nil {
			return err
		}
		return tx.UpdateUserName(ctx, userID, req.Name)
	})
	if err != nil {
		return nil, s.failure(err, "could not update profile")
	}

	return s.repo.GetProfile(ctx, userID)
}

// UploadPhoto stores the raw bytes and records the path on the profile.
// Storage is not part of the transactional contract.
func (s *Service) UploadPhoto(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (string, error) {
	path, err := s.storage.Save(profilePhotoDir, filename, r)
	if err != nil {
		return "", s.failure(err, "could not store photo")
	}

	if err := s.repo.UpdatePhoto(ctx, userID, path); err != nil {
		s.storage.Remove(path)
		return "", s.failure(err, "could not update photo")
	}
	return path, nil
}

func (s *Service) failure(err error, msg string) error {
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code != apperrors.ErrInternal {
		return appErr
	}
	s.logger.Error(err, msg)
	return apperrors.Internal(msg, err)
}
