package user

import (
	"context"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/user/dto"
)

type UseCase interface {
	Register(ctx context.Context, input *dto.RegisterInput) (*dto.AuthResult, error)
	Login(ctx context.Context, input *dto.LoginInput) (*dto.AuthResult, error)
	ChangePassword(ctx context.Context, userID int64, input *dto.ChangePasswordInput) error

	GetProfile(ctx context.Context, id int64) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, input *dto.UpdateProfileInput) (*model.User, error)
	SetAvatar(ctx context.Context, id int64, url *string) (*model.User, error)

	ListUsers(ctx context.Context, filters *dto.UserFilters) ([]model.User, int, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	CreateUser(ctx context.Context, input *dto.CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, input *dto.UpdateProfileInput) (*model.User, error)
	UpdateRole(ctx context.Context, actorID, id int64, role model.Role) (*model.User, error)
	DeleteUser(ctx context.Context, actorID, id int64) error
	Stats(ctx context.Context) (*dto.UserStats, error)
	PromoteByEmail(ctx context.Context, email string) (*model.User, error)
}
