package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/auth"
	catH "github.com/fekuna/buffet-service/internal/category/handler"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/order"
	orderH "github.com/fekuna/buffet-service/internal/order/handler"
	"github.com/fekuna/buffet-service/internal/order/dto"
	prodH "github.com/fekuna/buffet-service/internal/product/handler"
	reportH "github.com/fekuna/buffet-service/internal/report/handler"
	uploadH "github.com/fekuna/buffet-service/internal/upload/handler"
	userH "github.com/fekuna/buffet-service/internal/user/handler"
	"github.com/fekuna/buffet-service/pkg/i18n"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers map[int64]*model.User

func (s stubUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	return s[id], nil
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

// stubOrders implements order.UseCase; only the methods the tests hit do anything.
type stubOrders struct {
	order.UseCase
	createFn   func(actor *auth.Principal, input *dto.CreateOrderInput) (*dto.OrderWithQR, error)
	validateFn func(items []dto.CartItemInput) (*dto.CartValidation, error)
}

func (s *stubOrders) ValidateCart(_ context.Context, items []dto.CartItemInput) (*dto.CartValidation, error) {
	return s.validateFn(items)
}

func (s *stubOrders) CreateOrder(_ context.Context, actor *auth.Principal, input *dto.CreateOrderInput) (*dto.OrderWithQR, error) {
	return s.createFn(actor, input)
}

type envelope struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Code    string               `json:"code"`
	Data    json.RawMessage      `json:"data"`
	Errors  []apperror.ItemError `json:"errors"`
	Details any                  `json:"details"`
}

type fixture struct {
	router http.Handler
	tokens *auth.TokenManager
	users  stubUsers
}

func newFixture(t *testing.T, orders order.UseCase, db Pinger) *fixture {
	t.Helper()
	log := logger.NewNop()
	translator, err := i18n.New()
	require.NoError(t, err)

	users := stubUsers{
		1: {BaseModel: model.BaseModel{ID: 1}, Name: "Admin", Email: "admin@campus.edu", Role: model.RoleAdmin},
		7: {BaseModel: model.BaseModel{ID: 7}, Name: "Ana", Email: "ana@campus.edu", Role: model.RoleUser},
	}
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	router := NewRouter(
		Config{AllowedOrigins: []string{"http://localhost:5173"}, Production: true},
		Deps{
			Auth:       auth.NewAuthenticator(tokens, users, log),
			Translator: translator,
			DB:         db,
			Logger:     log,
		},
		Handlers{
			Users:      userH.NewUserHandler(nil, log),
			Categories: catH.NewCategoryHandler(nil, log),
			Products:   prodH.NewProductHandler(nil, nil, log),
			Orders:     orderH.NewOrderHandler(orders, log),
			Reports:    reportH.NewReportHandler(nil, log),
			Uploads:    uploadH.NewUploadHandler(nil, log),
		},
	)
	return &fixture{router: router, tokens: tokens, users: users}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (f *fixture) token(t *testing.T, id int64) string {
	t.Helper()
	tok, _, err := f.tokens.Issue(f.users[id])
	require.NoError(t, err)
	return tok
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil, stubPinger{})
	rec, env := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	f = newFixture(t, nil, stubPinger{err: errors.New("db down")})
	rec, env = f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
	assert.Nil(t, env.Details, "production responses carry no diagnostics")
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec, env := f.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route_not_found", env.Code)
}

func TestAccessGates(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec, env := f.do(t, http.MethodGet, "/api/admin/dashboard", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", env.Code)

	rec, env = f.do(t, http.MethodGet, "/api/admin/dashboard", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", env.Code)

	rec, env = f.do(t, http.MethodPut, "/api/orders/3/status", f.token(t, 7), `{"status":"ready"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Code)

	rec, _ = f.do(t, http.MethodDelete, "/api/products/3", f.token(t, 7), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateOrderEnvelope(t *testing.T) {
	orders := &stubOrders{createFn: func(actor *auth.Principal, input *dto.CreateOrderInput) (*dto.OrderWithQR, error) {
		if input.Items[0].Quantity < 1 {
			return nil, apperror.ValidationItems("the order has invalid items", []apperror.ItemError{
				{Item: 1, ProductID: input.Items[0].ProductID, Field: "quantity", Code: "invalid_quantity", Message: "quantity must be between 1 and 50"},
			})
		}
		return &dto.OrderWithQR{
			Order: &model.Order{
				BaseModel:   model.BaseModel{ID: 9},
				UserID:      actor.ID,
				Total:       decimal.NewFromInt(50),
				Status:      model.StatusPending,
				OrderNumber: "PED0009",
			},
			QRCode: "data:image/png;base64,AAAA",
		}, nil
	}}
	f := newFixture(t, orders, nil)
	tok := f.token(t, 7)

	rec, env := f.do(t, http.MethodPost, "/api/orders", tok, `{"items":[{"product_id":7,"quantity":1}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	var created dto.OrderWithQR
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "PED0009", created.Order.OrderNumber)
	assert.Equal(t, int64(7), created.Order.UserID)

	rec, env = f.do(t, http.MethodPost, "/api/orders", tok, `{"items":[{"product_id":7,"quantity":0}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", env.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, 1, env.Errors[0].Item)

	rec, env = f.do(t, http.MethodPost, "/api/orders", tok, `{"items":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", env.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, http.StatusMultipleChoices)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	f := newFixture(t, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecovererHidesPanics(t *testing.T) {
	orders := &stubOrders{createFn: func(*auth.Principal, *dto.CreateOrderInput) (*dto.OrderWithQR, error) {
		panic("boom")
	}}
	f := newFixture(t, orders, nil)

	rec, env := f.do(t, http.MethodPost, "/api/orders", f.token(t, 7), `{"items":[{"product_id":7,"quantity":1}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", env.Code)
	assert.Nil(t, env.Details)
}

func TestCartValidationRequiresLogin(t *testing.T) {
	orders := &stubOrders{validateFn: func(items []dto.CartItemInput) (*dto.CartValidation, error) {
		return &dto.CartValidation{Valid: true, Items: []dto.CartLine{}}, nil
	}}
	f := newFixture(t, orders, nil)
	body := `{"items":[{"product_id":7,"quantity":1}]}`

	rec, env := f.do(t, http.MethodPost, "/api/cart/validate", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", env.Code)

	rec, env = f.do(t, http.MethodPost, "/api/cart/validate", f.token(t, 7), body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}
