package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicware/reservation-api/internal/email"
	"github.com/clinicware/reservation-api/internal/model"
	"github.com/clinicware/reservation-api/internal/repository"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
	"github.com/clinicware/reservation-api/pkg/logger"
	"github.com/clinicware/reservation-api/pkg/security"
)

// Service mutates user identity fields for the profile editor.
type Service struct {
	repo     repository.UserRepository
	emailSvc email.Service
	hasher   security.PasswordHasher
	logger   *logger.Logger
}

func NewService(repo repository.UserRepository, emailSvc email.Service, logger *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		emailSvc: emailSvc,
		hasher:   security.NewBcryptHasher(security.DefaultHashCost),
		logger:   logger,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.Get(ctx, id)
}

// UpdateEmail changes the login email after a uniqueness check. The old
// address gets a notification; a send failure does not fail the update.
func (s *Service) UpdateEmail(ctx context.Context, userID uuid.UUID, newEmail string) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}

	taken, err := s.repo.EmailTaken(ctx, newEmail, userID)
	if err != nil {
		return s.failure(err, "could not update email")
	}
	if taken {
		return apperrors.Validation("the given data was invalid", map[string][]string{
			"email": {"this email is already in use"},
		})
	}

	if err := s.repo.UpdateEmail(ctx, userID, newEmail); err != nil {
		return s.failure(err, "could not update email")
	}

	if err := s.emailSvc.SendEmailChanged(ctx, user.Email, newEmail); err != nil {
		s.logger.Error(err, "failed to send email change notification")
	}
	return nil
}

// UpdatePassword verifies the current password before storing a new hash.
func (s *Service) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		return apperrors.Validation("the given data was invalid", map[string][]string{
			"current_password": {"current password is incorrect"},
		})
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.failure(err, "could not update password")
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return s.failure(err, "could not update password")
	}

	if err := s.emailSvc.SendPasswordChanged(ctx, user.Email); err != nil {
		s.logger.Error(err, "failed to send password change notification")
	}
	return nil
}

func (s *Service) failure(err error, msg string) error {
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code != apperrors.ErrInternal {
		return appErr
	}
	s.logger.Error(err, msg)
	return apperrors.Internal(msg, err)
}
