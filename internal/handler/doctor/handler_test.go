package doctor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicware/reservation-api/internal/email"
	"github.com/clinicware/reservation-api/internal/middleware"
	"github.com/clinicware/reservation-api/internal/model"
	"github.com/clinicware/reservation-api/internal/repository"
	doctorService "github.com/clinicware/reservation-api/internal/service/doctor"
	userService "github.com/clinicware/reservation-api/internal/service/user"
	"github.com/clinicware/reservation-api/pkg/auth"
	apperrors "github.com/clinicware/reservation-api/pkg/errors"
	"github.com/clinicware/reservation-api/pkg/logger"
	"github.com/clinicware/reservation-api/pkg/validator"
)

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]model.Doctor // keyed by user ID
	users   map[uuid.UUID]model.User
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{
		doctors: make(map[uuid.UUID]model.Doctor),
		users:   make(map[uuid.UUID]model.User),
	}
}

func (r *fakeDoctorRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*model.DoctorProfile, error) {
	d, ok := r.doctors[userID]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	u := r.users[userID]
	return &model.DoctorProfile{Doctor: d, Name: u.Name, Email: u.Email}, nil
}

func (r *fakeDoctorRepo) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.DoctorProfile, error) {
	return nil, nil
}

func (r *fakeDoctorRepo) UpdatePhoto(ctx context.Context, userID uuid.UUID, photoPath string) error {
	d, ok := r.doctors[userID]
	if !ok {
		return apperrors.NotFound("doctor", nil)
	}
	d.PhotoPath = photoPath
	r.doctors[userID] = d
	return nil
}

func (r *fakeDoctorRepo) WithTx(ctx context.Context, fn func(tx repository.DoctorTxStore) error) error {
	return fn(r)
}

func (r *fakeDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	d, ok := r.doctors[userID]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	copied := d
	return &copied, nil
}

func (r *fakeDoctorRepo) Save(ctx context.Context, doctor *model.Doctor) error {
	r.doctors[doctor.UserID] = *doctor
	return nil
}

func (r *fakeDoctorRepo) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) error {
	u, ok := r.users[userID]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	u.Name = name
	r.users[userID] = u
	return nil
}

func (r *fakeDoctorRepo) NameTaken(ctx context.Context, name string, excludeUserID uuid.UUID) (bool, error) {
	for id, u := range r.users {
		if id != excludeUserID && u.Name == name {
			return true, nil
		}
	}
	return false, nil
}

type fakeUserRepo struct {
	parent *fakeDoctorRepo
}

func (r fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.parent.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	copied := u
	return &copied, nil
}

func (r fakeUserRepo) GetByEmail(ctx context.Context, addr string) (*model.User, error) {
	for _, u := range r.parent.users {
		if u.Email == addr {
			copied := u
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (r fakeUserRepo) EmailTaken(ctx context.Context, addr string, excludeID uuid.UUID) (bool, error) {
	for id, u := range r.parent.users {
		if id != excludeID && u.Email == addr {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeUserRepo) UpdateEmail(ctx context.Context, id uuid.UUID, addr string) error {
	u := r.parent.users[id]
	u.Email = addr
	r.parent.users[id] = u
	return nil
}

func (r fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	u := r.parent.users[id]
	u.PasswordHash = hash
	r.parent.users[id] = u
	return nil
}

type testEnv struct {
	engine *gin.Engine
	repo   *fakeDoctorRepo
	userID uuid.UUID
	token  string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newFakeDoctorRepo()
	lg := logger.NewLogger(nil)

	svc := doctorService.NewService(repo, nil, lg)
	userSvc := userService.NewService(fakeUserRepo{parent: repo}, email.NoopService{}, lg)
	h := NewHandler(svc, userSvc, validator.New())

	tokens := auth.NewTokenManager(auth.Config{Secret: "test-secret", ExpiryHours: 1})
	authMW := middleware.NewAuthMiddleware(tokens)

	engine := gin.New()
	api := engine.Group("/api/v1")
	api.Use(authMW.Authenticate(), authMW.RequireRole(auth.RoleDoctor))
	h.RegisterRoutes(api)

	userID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users[userID] = model.User{
		Base:         model.Base{ID: userID},
		Name:         "Dr. Sato",
		Email:        "sato@example.com",
		PasswordHash: string(hash),
	}
	repo.doctors[userID] = model.Doctor{
		Base:      model.Base{ID: uuid.New()},
		UserID:    userID,
		ClinicID:  uuid.New(),
		Specialty: "dermatology",
	}

	token, err := tokens.Generate(userID, uuid.Nil, auth.RoleDoctor)
	require.NoError(t, err)

	return &testEnv{engine: engine, repo: repo, userID: userID, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func TestGetProfile(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/doctor/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Dr. Sato")
}

func TestUpdateProfile(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/doctor/profile", gin.H{
		"name":      "Dr. Tanaka",
		"specialty": "cardiology",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Dr. Tanaka", env.repo.users[env.userID].Name)
	assert.Equal(t, "cardiology", env.repo.doctors[env.userID].Specialty)
}

func TestUpdateProfileRejectsDuplicateName(t *testing.T) {
	env := setupEnv(t)
	otherID := uuid.New()
	env.repo.users[otherID] = model.User{Base: model.Base{ID: otherID}, Name: "Dr. Suzuki"}

	rec := env.do(t, http.MethodPut, "/api/v1/doctor/profile", gin.H{"name": "Dr. Suzuki"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name")
	assert.Equal(t, "Dr. Sato", env.repo.users[env.userID].Name)
}

func TestUpdateProfileRequiresName(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/doctor/profile", gin.H{"specialty": "cardiology"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateEmailRejectsDuplicate(t *testing.T) {
	env := setupEnv(t)
	otherID := uuid.New()
	env.repo.users[otherID] = model.User{Base: model.Base{ID: otherID}, Email: "taken@example.com"}

	rec := env.do(t, http.MethodPut, "/api/v1/doctor/profile/email", gin.H{"email": "taken@example.com"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sato@example.com", env.repo.users[env.userID].Email)
}

func TestUpdatePassword(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/doctor/profile/password", gin.H{
		"current_password":          "secret123",
		"new_password":              "evenmoresecret",
		"new_password_confirmation": "evenmoresecret",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(env.repo.users[env.userID].PasswordHash), []byte("evenmoresecret")))
}

func TestUpdatePasswordRejectsMismatchedConfirmation(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/doctor/profile/password", gin.H{
		"current_password":          "secret123",
		"new_password":              "evenmoresecret",
		"new_password_confirmation": "different",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "new_password_confirmation")
}

func TestUpdatePasswordRejectsWrongCurrent(t *testing.T) {
	env := setupEnv(t)
	before := env.repo.users[env.userID].PasswordHash

	rec := env.do(t, http.MethodPut, "/api/v1/doctor/profile/password", gin.H{
		"current_password":          "wrong",
		"new_password":              "evenmoresecret",
		"new_password_confirmation": "evenmoresecret",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "current_password")
	assert.Equal(t, before, env.repo.users[env.userID].PasswordHash)
}
