package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/httpx"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/pkg/logger"
	"go.uber.org/zap"
)

// UserLookup confirms a token subject still exists and supplies its current role.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

type Authenticator struct {
	tokens *TokenManager
	users  UserLookup
	logger logger.ZapLogger
}

func NewAuthenticator(tokens *TokenManager, users UserLookup, log logger.ZapLogger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, logger: log}
}

// Authenticate resolves the bearer token to a Principal. The role comes from
// the store, not the token, so demotions apply immediately.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*Principal, error) {
	claims, err := a.tokens.Parse(extractBearerToken(header))
	if err != nil {
		return nil, err
	}
	u, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if u == nil {
		return nil, apperror.Unauthenticated("user_not_found", "user no longer exists")
	}
	return &Principal{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

// Middleware rejects requests without a valid token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			a.logger.Debug("authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
			httpx.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Authorize is a set-membership test with no role hierarchy.
func Authorize(p *Principal, roles ...model.Role) error {
	if p == nil {
		return ErrMissingToken
	}
	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}
	return apperror.Forbidden()
}

// Require declares the roles allowed to reach the wrapped handler. It must run after Middleware.
func Require(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := FromContext(r.Context())
			if err := Authorize(p, roles...); err != nil {
				httpx.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerOrAdmin allows the resource owner or an admin.
func OwnerOrAdmin(p *Principal, ownerID int64) error {
	if p == nil {
		return ErrMissingToken
	}
	if p.IsAdmin() || p.ID == ownerID {
		return nil
	}
	return apperror.Forbidden()
}

func extractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
