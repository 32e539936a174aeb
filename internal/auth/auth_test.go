package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	findByID func(ctx context.Context, id int64) (*model.User, error)
}

func (s stubUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return s.findByID(ctx, id)
}

func newUser(id int64, role model.Role) *model.User {
	return &model.User{BaseModel: model.BaseModel{ID: id}, Email: "a@campus.edu", Name: "Ana", Role: role}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, exp, err := m.Issue(newUser(7, model.RoleAdmin))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, "7", claims.Subject)
}

func TestTokenRejections(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	_, err := m.Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other := NewTokenManager("other", time.Hour)
	token, _, err := other.Issue(newUser(1, model.RoleUser))
	require.NoError(t, err)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err = expired.Issue(newUser(1, model.RoleUser))
	require.NoError(t, err)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAuthorizeIsSetMembership(t *testing.T) {
	admin := &Principal{ID: 1, Role: model.RoleAdmin}
	user := &Principal{ID: 2, Role: model.RoleUser}

	assert.NoError(t, Authorize(admin, model.RoleAdmin))
	assert.NoError(t, Authorize(user, model.RoleUser, model.RoleAdmin))
	assert.True(t, apperror.IsKind(Authorize(user, model.RoleAdmin), apperror.KindAuthorization))
	// admin is not implicitly allowed where only users are listed
	assert.True(t, apperror.IsKind(Authorize(admin, model.RoleUser), apperror.KindAuthorization))
	assert.True(t, apperror.IsKind(Authorize(nil, model.RoleUser), apperror.KindAuthentication))
}

func TestOwnerOrAdmin(t *testing.T) {
	assert.NoError(t, OwnerOrAdmin(&Principal{ID: 3, Role: model.RoleUser}, 3))
	assert.NoError(t, OwnerOrAdmin(&Principal{ID: 1, Role: model.RoleAdmin}, 3))
	assert.Error(t, OwnerOrAdmin(&Principal{ID: 4, Role: model.RoleUser}, 3))
}

func TestMiddlewareUsesStoredRole(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	token, _, err := tokens.Issue(newUser(5, model.RoleAdmin))
	require.NoError(t, err)

	users := stubUsers{findByID: func(ctx context.Context, id int64) (*model.User, error) {
		return newUser(id, model.RoleUser), nil
	}}
	a := NewAuthenticator(tokens, users, logger.NewNop())

	var seen *Principal
	h := a.Middleware(Require(model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, seen)
}

func TestMiddlewareRejectsMissingUser(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	token, _, err := tokens.Issue(newUser(5, model.RoleUser))
	require.NoError(t, err)

	a := NewAuthenticator(tokens, stubUsers{findByID: func(context.Context, int64) (*model.User, error) {
		return nil, nil
	}}, logger.NewNop())

	_, err = a.Authenticate(context.Background(), "Bearer "+token)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthentication))

	a = NewAuthenticator(tokens, stubUsers{findByID: func(context.Context, int64) (*model.User, error) {
		return nil, errors.New("db down")
	}}, logger.NewNop())
	_, err = a.Authenticate(context.Background(), "Bearer "+token)
	assert.True(t, apperror.IsKind(err, apperror.KindInternal))
}

func TestMiddlewareNoHeader(t *testing.T) {
	a := NewAuthenticator(NewTokenManager("s", time.Hour), stubUsers{}, logger.NewNop())
	rec := httptest.NewRecorder()
	a.Middleware(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
