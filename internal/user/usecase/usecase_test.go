package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/user/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubRepo struct {
	users       map[int64]*model.User
	nextID      int64
	orderCounts map[int64]int
	deleteErr   error
	deleted     []int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[int64]*model.User{}, orderCounts: map[int64]int{}, nextID: 1}
}

func (s *stubRepo) Create(_ context.Context, u *model.User) error {
	u.ID = s.nextID
	s.nextID++
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) FindAll(context.Context, *dto.UserFilters) ([]model.User, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) Update(_ context.Context, u *model.User) error {
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.users[id].PasswordHash = hash
	return nil
}

func (s *stubRepo) UpdateRole(_ context.Context, id int64, role model.Role) error {
	s.users[id].Role = role
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	delete(s.users, id)
	return nil
}

func (s *stubRepo) CountOrders(_ context.Context, id int64) (int, error) {
	return s.orderCounts[id], nil
}

func (s *stubRepo) Stats(context.Context) (*dto.UserStats, error) {
	return &dto.UserStats{}, nil
}

type stubTokens struct{}

func (stubTokens) Issue(u *model.User) (string, time.Time, error) {
	return "token-for-" + u.Email, time.Now().Add(time.Hour), nil
}

type memLimiter struct {
	hits  map[string]int64
	reset []string
}

func (m *memLimiter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.hits[key]++
	return m.hits[key], nil
}

func (m *memLimiter) Reset(_ context.Context, key string) error {
	m.reset = append(m.reset, key)
	delete(m.hits, key)
	return nil
}

func newUseCase(repo *stubRepo, limiter LoginLimiter) *userUseCase {
	uc := NewUserUseCase(repo, stubTokens{}, limiter, Options{BcryptCost: bcrypt.MinCost, MaxAttempts: 3}, logger.NewNop())
	return uc.(*userUseCase)
}

func register(t *testing.T, uc *userUseCase, email string) *model.User {
	t.Helper()
	res, err := uc.Register(context.Background(), &dto.RegisterInput{Name: "Ana Perez", Email: email, Password: "secret123"})
	require.NoError(t, err)
	return res.User
}

func TestRegisterAlwaysCreatesPlainUser(t *testing.T) {
	repo := newStubRepo()
	uc := newUseCase(repo, nil)

	res, err := uc.Register(context.Background(), &dto.RegisterInput{
		Name: "<b>Ana</b>", Email: "  ANA@Campus.edu ", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.Equal(t, "ana@campus.edu", res.User.Email)
	assert.Equal(t, "Ana", res.User.Name)
	assert.Equal(t, "token-for-ana@campus.edu", res.Token)
	assert.NotEqual(t, "secret123", repo.users[res.User.ID].PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	uc := newUseCase(newStubRepo(), nil)

	_, err := uc.Register(context.Background(), &dto.RegisterInput{Name: "A", Email: "nope", Password: "123"})
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Len(t, appErr.Items, 3)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc := newUseCase(newStubRepo(), nil)
	register(t, uc, "ana@campus.edu")

	_, err := uc.Register(context.Background(), &dto.RegisterInput{Name: "Ana Dos", Email: "ana@campus.edu", Password: "secret123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, "email", apperror.As(err).Field)
}

func TestLogin(t *testing.T) {
	limiter := &memLimiter{hits: map[string]int64{}}
	uc := newUseCase(newStubRepo(), limiter)
	register(t, uc, "ana@campus.edu")

	_, err := uc.Login(context.Background(), &dto.LoginInput{Email: "ana@campus.edu", Password: "wrong-pass", ClientIP: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := uc.Login(context.Background(), &dto.LoginInput{Email: "ANA@campus.edu", Password: "secret123", ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, []string{"login:ana@campus.edu:10.0.0.1"}, limiter.reset)
}

func TestLoginRateLimited(t *testing.T) {
	limiter := &memLimiter{hits: map[string]int64{}}
	uc := newUseCase(newStubRepo(), limiter)
	register(t, uc, "ana@campus.edu")

	in := &dto.LoginInput{Email: "ana@campus.edu", Password: "wrong-pass", ClientIP: "10.0.0.1"}
	for i := 0; i < 3; i++ {
		_, err := uc.Login(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := uc.Login(context.Background(), &dto.LoginInput{Email: "ana@campus.edu", Password: "secret123", ClientIP: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestChangePassword(t *testing.T) {
	uc := newUseCase(newStubRepo(), nil)
	u := register(t, uc, "ana@campus.edu")

	err := uc.ChangePassword(context.Background(), u.ID, &dto.ChangePasswordInput{CurrentPassword: "bad-one", NewPassword: "another1"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, uc.ChangePassword(context.Background(), u.ID, &dto.ChangePasswordInput{CurrentPassword: "secret123", NewPassword: "another1"}))
	_, err = uc.Login(context.Background(), &dto.LoginInput{Email: "ana@campus.edu", Password: "another1"})
	assert.NoError(t, err)
}

func TestUpdateProfilePatchesOnlyPresentFields(t *testing.T) {
	repo := newStubRepo()
	uc := newUseCase(repo, nil)
	phone := "555-1234"
	res, err := uc.Register(context.Background(), &dto.RegisterInput{Name: "Ana Perez", Email: "ana@campus.edu", Password: "secret123", Phone: &phone})
	require.NoError(t, err)

	addr := "Dorm 4"
	u, err := uc.UpdateProfile(context.Background(), res.User.ID, &dto.UpdateProfileInput{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "Ana Perez", u.Name)
	require.NotNil(t, u.Phone)
	assert.Equal(t, "555-1234", *u.Phone)
	require.NotNil(t, u.Address)
	assert.Equal(t, "Dorm 4", *u.Address)
}

func TestUpdateProfileEmailTaken(t *testing.T) {
	uc := newUseCase(newStubRepo(), nil)
	register(t, uc, "ana@campus.edu")
	bob := register(t, uc, "bob@campus.edu")

	email := "ana@campus.edu"
	_, err := uc.UpdateProfile(context.Background(), bob.ID, &dto.UpdateProfileInput{Email: &email})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestDeleteUserRules(t *testing.T) {
	repo := newStubRepo()
	uc := newUseCase(repo, nil)
	admin := register(t, uc, "admin@campus.edu")
	buyer := register(t, uc, "buyer@campus.edu")
	idle := register(t, uc, "idle@campus.edu")
	repo.orderCounts[buyer.ID] = 2

	assert.ErrorIs(t, uc.DeleteUser(context.Background(), admin.ID, admin.ID), ErrDeleteSelf)
	assert.ErrorIs(t, uc.DeleteUser(context.Background(), admin.ID, buyer.ID), ErrUserHasOrders)
	assert.True(t, apperror.IsKind(uc.DeleteUser(context.Background(), admin.ID, 999), apperror.KindNotFound))

	require.NoError(t, uc.DeleteUser(context.Background(), admin.ID, idle.ID))
	assert.Equal(t, []int64{idle.ID}, repo.deleted)
}

func TestDeleteUserForeignKeyRace(t *testing.T) {
	repo := newStubRepo()
	uc := newUseCase(repo, nil)
	admin := register(t, uc, "admin@campus.edu")
	buyer := register(t, uc, "buyer@campus.edu")
	repo.deleteErr = apperror.Policy("still_referenced", "record is referenced by other records")

	assert.ErrorIs(t, uc.DeleteUser(context.Background(), admin.ID, buyer.ID), ErrUserHasOrders)
}

func TestUpdateRoleAndPromote(t *testing.T) {
	uc := newUseCase(newStubRepo(), nil)
	admin := register(t, uc, "admin@campus.edu")
	u := register(t, uc, "u@campus.edu")

	_, err := uc.UpdateRole(context.Background(), admin.ID, u.ID, "superuser")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	updated, err := uc.UpdateRole(context.Background(), admin.ID, u.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)

	_, err = uc.UpdateRole(context.Background(), u.ID, u.ID, model.RoleUser)
	assert.True(t, apperror.IsKind(err, apperror.KindPolicy))

	promoted, err := uc.PromoteByEmail(context.Background(), "ADMIN@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	_, err = uc.PromoteByEmail(context.Background(), "ghost@campus.edu")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}
