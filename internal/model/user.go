package model

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	BaseModel
	Name         string  `db:"name" json:"name"`
	Email        string  `db:"email" json:"email"`
	PasswordHash string  `db:"password_hash" json:"-"`
	Phone        *string `db:"phone" json:"phone"`
	Address      *string `db:"address" json:"address"`
	AvatarURL    *string `db:"avatar_url" json:"avatar_url"`
	Role         Role    `db:"role" json:"role"`
	OrderCount   *int    `db:"order_count" json:"order_count,omitempty"`
}

// UserSummary is the owner view embedded in orders.
type UserSummary struct {
	ID    int64   `db:"id" json:"id"`
	Name  string  `db:"name" json:"name"`
	Email string  `db:"email" json:"email"`
	Phone *string `db:"phone" json:"phone"`
}
