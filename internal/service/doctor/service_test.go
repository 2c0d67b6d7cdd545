package doctor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/reservation-api/internal/model"
	"github.com/clinicware/reservation-api/internal/repository"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
	"github.com/clinicware/reservation-api/pkg/logger"
)

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]model.Doctor // keyed by user id
	names   map[uuid.UUID]string
	photos  map[uuid.UUID]string

	failSave bool
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{
		doctors: make(map[uuid.UUID]model.Doctor),
		names:   make(map[uuid.UUID]string),
		photos:  make(map[uuid.UUID]string),
	}
}

type fakeDoctorTx struct {
	repo    *fakeDoctorRepo
	doctors map[uuid.UUID]model.Doctor
	names   map[uuid.UUID]string
}

func (r *fakeDoctorRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*model.DoctorProfile, error) {
	d, ok := r.doctors[userID]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	return &model.DoctorProfile{Doctor: d, Name: r.names[userID]}, nil
}

func (r *fakeDoctorRepo) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.DoctorProfile, error) {
	var out []*model.DoctorProfile
	for userID, d := range r.doctors {
		if d.ClinicID == clinicID {
			out = append(out, &model.DoctorProfile{Doctor: d, Name: r.names[userID]})
		}
	}
	return out, nil
}

func (r *fakeDoctorRepo) UpdatePhoto(ctx context.Context, userID uuid.UUID, photoPath string) error {
	if _, ok := r.doctors[userID]; !ok {
		return apperrors.NotFound("doctor", nil)
	}
	r.photos[userID] = photoPath
	return nil
}

func (r *fakeDoctorRepo) WithTx(ctx context.Context, fn func(tx repository.DoctorTxStore) error) error {
	tx := &fakeDoctorTx{
		repo:    r,
		doctors: make(map[uuid.UUID]model.Doctor, len(r.doctors)),
		names:   make(map[uuid.UUID]string, len(r.names)),
	}
	for id, d := range r.doctors {
		tx.doctors[id] = d
	}
	for id, n := range r.names {
		tx.names[id] = n
	}

	if err := fn(tx); err != nil {
		return err
	}

	r.doctors = tx.doctors
	r.names = tx.names
	return nil
}

func (tx *fakeDoctorTx) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	d, ok := tx.doctors[userID]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	copied := d
	return &copied, nil
}

func (tx *fakeDoctorTx) Save(ctx context.Context, doctor *model.Doctor) error {
	if tx.repo.failSave {
		return errors.New("pq: deadlock detected")
	}
	tx.doctors[doctor.UserID] = *doctor
	return nil
}

func (tx *fakeDoctorTx) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) error {
	tx.names[userID] = name
	return nil
}

func (tx *fakeDoctorTx) NameTaken(ctx context.Context, name string, excludeUserID uuid.UUID) (bool, error) {
	for id, n := range tx.names {
		if id != excludeUserID && n == name {
			return true, nil
		}
	}
	return false, nil
}

type fakeStorage struct {
	saved   []string
	removed []string
	fail    bool
}

func (s *fakeStorage) Save(dir, originalName string, r io.Reader) (string, error) {
	if s.fail {
		return "", errors.New("disk full")
	}
	path := dir + "/" + originalName
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *fakeStorage) Remove(storedPath string) error {
	s.removed = append(s.removed, storedPath)
	return nil
}

func seedDoctor(repo *fakeDoctorRepo, name string) uuid.UUID {
	userID := uuid.New()
	repo.doctors[userID] = model.Doctor{
		Base:      model.Base{ID: uuid.New()},
		UserID:    userID,
		ClinicID:  uuid.New(),
		Specialty: "internal medicine",
	}
	repo.names[userID] = name
	return userID
}

func strPtr(s string) *string { return &s }

func TestUpdateProfilePersistsDoctorAndName(t *testing.T) {
	repo := newFakeDoctorRepo()
	userID := seedDoctor(repo, "Dr. Sato")
	svc := NewService(repo, &fakeStorage{}, logger.NewLogger(nil))

	profile, err := svc.UpdateProfile(context.Background(), userID, &model.UpdateProfileRequest{
		Name:      "Dr. Sato II",
		Specialty: strPtr("dermatology"),
		Bio:       strPtr("20 years of practice"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Sato II", profile.Name)
	assert.Equal(t, "dermatology", profile.Specialty)
	assert.Equal(t, "20 years of practice", profile.Bio)
}

func TestUpdateProfileDuplicateNameRollsBack(t *testing.T) {
	repo := newFakeDoctorRepo()
	userID := seedDoctor(repo, "Dr. Sato")
	seedDoctor(repo, "Dr. Suzuki")
	svc := NewService(repo, &fakeStorage{}, logger.NewLogger(nil))

	_, err := svc.UpdateProfile(context.Background(), userID, &model.UpdateProfileRequest{
		Name:      "Dr. Suzuki",
		Specialty: strPtr("dermatology"),
	})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "name")

	// Nothing committed.
	assert.Equal(t, "internal medicine", repo.doctors[userID].Specialty)
	assert.Equal(t, "Dr. Sato", repo.names[userID])
}

func TestUpdateProfileStoreFailureIsGeneric(t *testing.T) {
	repo := newFakeDoctorRepo()
	userID := seedDoctor(repo, "Dr. Sato")
	repo.failSave = true
	svc := NewService(repo, &fakeStorage{}, logger.NewLogger(nil))

	_, err := svc.UpdateProfile(context.Background(), userID, &model.UpdateProfileRequest{Name: "Dr. Sato"})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrInternal, appErr.Code)
	assert.Equal(t, "could not update profile", appErr.Message)
}

func TestUploadPhotoCleansUpOnRepoFailure(t *testing.T) {
	repo := newFakeDoctorRepo()
	store := &fakeStorage{}
	svc := NewService(repo, store, logger.NewLogger(nil))

	// Unknown doctor: repo update fails, the stored file is removed again.
	_, err := svc.UploadPhoto(context.Background(), uuid.New(), "face.png", strings.NewReader("img"))
	require.Error(t, err)
	require.Len(t, store.saved, 1)
	assert.Equal(t, store.saved, store.removed)
}

func TestUploadPhotoRecordsPath(t *testing.T) {
	repo := newFakeDoctorRepo()
	userID := seedDoctor(repo, "Dr. Sato")
	svc := NewService(repo, &fakeStorage{}, logger.NewLogger(nil))

	path, err := svc.UploadPhoto(context.Background(), userID, "face.png", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, path, repo.photos[userID])
}
