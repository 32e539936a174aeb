package usecase

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/upload"
	"github.com/fekuna/buffet-service/internal/upload/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sniffLen = 512

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
}

var storedName = regexp.MustCompile(`^(product|avatar)-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpg|png|webp|gif)$`)

var (
	ErrNoFile          = apperror.Validation("file_required", "no file was uploaded").WithField("file")
	ErrUnsupportedType = apperror.Validation("unsupported_file_type", "only JPEG, PNG, WebP and GIF images are allowed").WithField("file")
	ErrInvalidName     = apperror.Validation("invalid_filename", "invalid file name").WithField("filename")
)

type Options struct {
	BaseURL         string
	MaxProductImage int64
	MaxAvatar       int64
}

type uploadUseCase struct {
	store  upload.Storage
	users  upload.AvatarSetter
	opts   Options
	logger logger.ZapLogger
}

func NewUploadUseCase(store upload.Storage, users upload.AvatarSetter, opts Options, log logger.ZapLogger) upload.UseCase {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &uploadUseCase{store: store, users: users, opts: opts, logger: log}
}

func (uc *uploadUseCase) Limit(kind dto.Kind) int64 {
	if kind == dto.KindAvatar {
		return uc.opts.MaxAvatar
	}
	return uc.opts.MaxProductImage
}

// TooLarge is the error for a file over the limit of kind, with the limit in readable units.
func TooLarge(limit int64) error {
	readable := humanize.IBytes(uint64(limit))
	return apperror.Validation("file_too_large", fmt.Sprintf("file exceeds the %s limit", readable)).
		WithField("file").
		WithParam("Limit", readable)
}

func (uc *uploadUseCase) UploadProductImage(ctx context.Context, file *dto.Upload) (*dto.FileInfo, error) {
	file.Kind = dto.KindProduct
	return uc.save(ctx, file)
}

// UploadAvatar stores the image and points the profile at it. The previous
// avatar file is removed once the profile is updated.
func (uc *uploadUseCase) UploadAvatar(ctx context.Context, userID int64, file *dto.Upload) (*dto.FileInfo, *model.User, error) {
	current, err := uc.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	file.Kind = dto.KindAvatar
	info, err := uc.save(ctx, file)
	if err != nil {
		return nil, nil, err
	}

	updated, err := uc.users.SetAvatar(ctx, userID, &info.URL)
	if err != nil {
		uc.discard(ctx, info.Name)
		return nil, nil, err
	}
	if current.AvatarURL != nil {
		if old := uc.ownName(*current.AvatarURL); old != "" && old != info.Name {
			uc.discard(ctx, old)
		}
	}
	return info, updated, nil
}

func (uc *uploadUseCase) save(ctx context.Context, file *dto.Upload) (*dto.FileInfo, error) {
	if file == nil || file.Reader == nil {
		return nil, ErrNoFile
	}
	limit := uc.Limit(file.Kind)
	if file.Size > limit {
		return nil, TooLarge(limit)
	}

	br := bufio.NewReaderSize(file.Reader, sniffLen)
	head, _ := br.Peek(sniffLen)
	if len(head) == 0 {
		return nil, ErrNoFile
	}
	contentType := http.DetectContentType(head)
	ext, ok := extensions[contentType]
	if !ok {
		return nil, ErrUnsupportedType.WithParam("Type", contentType)
	}

	name := fmt.Sprintf("%s-%s.%s", file.Kind, uuid.NewString(), ext)
	size, err := uc.store.Save(ctx, name, br, limit)
	if err != nil {
		if apperror.IsKind(err, apperror.KindValidation) {
			return nil, TooLarge(limit)
		}
		return nil, err
	}

	uc.logger.Info("file uploaded",
		zap.String("filename", name),
		zap.String("kind", string(file.Kind)),
		zap.Int64("size", size),
	)
	return &dto.FileInfo{
		Name:        name,
		URL:         uc.opts.BaseURL + "/" + name,
		Size:        size,
		HumanSize:   humanize.IBytes(uint64(size)),
		ContentType: contentType,
	}, nil
}

// DeleteFile removes a stored file. Deleting a missing file reports NotFound.
func (uc *uploadUseCase) DeleteFile(ctx context.Context, name string) error {
	if !storedName.MatchString(name) {
		return ErrInvalidName
	}
	if err := uc.store.Delete(ctx, name); err != nil {
		return err
	}
	uc.logger.Info("file deleted", zap.String("filename", name))
	return nil
}

func (uc *uploadUseCase) FileInfo(ctx context.Context, name string) (*dto.FileInfo, error) {
	if !storedName.MatchString(name) {
		return nil, ErrInvalidName
	}
	size, modified, err := uc.store.Stat(ctx, name)
	if err != nil {
		return nil, err
	}
	return &dto.FileInfo{
		Name:        name,
		URL:         uc.opts.BaseURL + "/" + name,
		Size:        size,
		HumanSize:   humanize.IBytes(uint64(size)),
		ContentType: contentTypes[name[strings.LastIndexByte(name, '.')+1:]],
		ModifiedAt:  modified,
	}, nil
}

// ownName returns the stored file name behind url when url points at this store.
func (uc *uploadUseCase) ownName(url string) string {
	name, ok := strings.CutPrefix(url, uc.opts.BaseURL+"/")
	if !ok || !storedName.MatchString(name) {
		return ""
	}
	return name
}

func (uc *uploadUseCase) discard(ctx context.Context, name string) {
	if err := uc.store.Delete(ctx, name); err != nil && !apperror.IsKind(err, apperror.KindNotFound) {
		uc.logger.Warn("remove stale upload", zap.String("filename", name), zap.Error(err))
	}
}
