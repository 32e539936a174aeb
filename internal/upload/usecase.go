package upload

import (
	"context"
	"io"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/upload/dto"
)

// Storage keeps uploaded files by generated name.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, limit int64) (int64, error)
	Delete(ctx context.Context, name string) error
	Stat(ctx context.Context, name string) (size int64, modified time.Time, err error)
}

// AvatarSetter is the part of the user usecase avatar uploads need.
type AvatarSetter interface {
	GetProfile(ctx context.Context, id int64) (*model.User, error)
	SetAvatar(ctx context.Context, id int64, url *string) (*model.User, error)
}

type UseCase interface {
	UploadProductImage(ctx context.Context, file *dto.Upload) (*dto.FileInfo, error)
	UploadAvatar(ctx context.Context, userID int64, file *dto.Upload) (*dto.FileInfo, *model.User, error)
	DeleteFile(ctx context.Context, name string) error
	FileInfo(ctx context.Context, name string) (*dto.FileInfo, error)
	Limit(kind dto.Kind) int64
}
