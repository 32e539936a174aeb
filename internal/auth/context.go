package auth

import (
	"context"

	"github.com/fekuna/buffet-service/internal/model"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID    int64
	Email string
	Name  string
	Role  model.Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// UserID returns the caller id or 0 when the request is anonymous.
func UserID(ctx context.Context) int64 {
	if p, ok := FromContext(ctx); ok {
		return p.ID
	}
	return 0
}
