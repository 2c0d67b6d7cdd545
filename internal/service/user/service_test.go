package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicware/reservation-api/internal/email"
	"github.com/clinicware/reservation-api/internal/model"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
	"github.com/clinicware/reservation-api/pkg/logger"
)

type fakeUserRepo struct {
	users map[uuid.UUID]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]model.User)}
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	copied := u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (r *fakeUserRepo) EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	for id, u := range r.users {
		if id != excludeID && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	u, ok := r.users[id]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	u.Email = email
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	u.PasswordHash = passwordHash
	r.users[id] = u
	return nil
}

func seedUser(repo *fakeUserRepo, emailAddr, password string) uuid.UUID {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	id := uuid.New()
	repo.users[id] = model.User{
		Base:         model.Base{ID: id},
		Email:        emailAddr,
		Name:         "tester",
		PasswordHash: string(hash),
	}
	return id
}

func newTestService(repo *fakeUserRepo) *Service {
	return NewService(repo, email.NoopService{}, logger.NewLogger(nil))
}

func TestUpdateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	id := seedUser(repo, "old@example.com", "secret1")
	svc := newTestService(repo)

	err := svc.UpdateEmail(context.Background(), id, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", repo.users[id].Email)
}

func TestUpdateEmailRejectsDuplicate(t *testing.T) {
	repo := newFakeUserRepo()
	id := seedUser(repo, "a@example.com", "secret1")
	seedUser(repo, "b@example.com", "secret2")
	svc := newTestService(repo)

	err := svc.UpdateEmail(context.Background(), id, "b@example.com")
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "email")
	assert.Equal(t, "a@example.com", repo.users[id].Email)
}

func TestUpdatePassword(t *testing.T) {
	repo := newFakeUserRepo()
	id := seedUser(repo, "a@example.com", "oldpass")
	svc := newTestService(repo)

	err := svc.UpdatePassword(context.Background(), id, "oldpass", "newpass123")
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[id].PasswordHash), []byte("newpass123")))
}

func TestUpdatePasswordWrongCurrent(t *testing.T) {
	repo := newFakeUserRepo()
	id := seedUser(repo, "a@example.com", "oldpass")
	before := repo.users[id].PasswordHash
	svc := newTestService(repo)

	err := svc.UpdatePassword(context.Background(), id, "wrong", "newpass123")
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "current_password")
	assert.Equal(t, before, repo.users[id].PasswordHash)
}

func TestUpdatePasswordUnknownUser(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	err := svc.UpdatePassword(context.Background(), uuid.New(), "x", "y")
	assert.True(t, apperrors.IsNotFound(err))
}
