package dto

import (
	"time"

	"github.com/fekuna/buffet-service/internal/model"
)

type RegisterInput struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ClientIP string `json:"-"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateProfileInput only touches fields that are present in the request.
type UpdateProfileInput struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type CreateUserInput struct {
	RegisterInput
	Role model.Role `json:"role"`
}

type UpdateRoleInput struct {
	Role model.Role `json:"role"`
}

type PromoteInput struct {
	Email string `json:"email"`
}

type AuthResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type UserFilters struct {
	Search    string
	Role      model.Role
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

type UserStats struct {
	Total        int `db:"total" json:"total"`
	Admins       int `db:"admins" json:"admins"`
	Users        int `db:"users" json:"users"`
	NewThisMonth int `db:"new_this_month" json:"new_this_month"`
}
