package user

import (
	"context"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/user/dto"
)

type Repository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindAll(ctx context.Context, filters *dto.UserFilters) ([]model.User, int, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateRole(ctx context.Context, id int64, role model.Role) error
	Delete(ctx context.Context, id int64) error
	CountOrders(ctx context.Context, id int64) (int, error)
	Stats(ctx context.Context) (*dto.UserStats, error)
}
