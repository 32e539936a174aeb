package handler

import (
	"errors"
	"net/http"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/auth"
	"github.com/fekuna/buffet-service/internal/httpx"
	"github.com/fekuna/buffet-service/internal/upload"
	"github.com/fekuna/buffet-service/internal/upload/dto"
	"github.com/fekuna/buffet-service/internal/upload/usecase"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead covers boundaries and part headers around the file.
const multipartOverhead = 64 << 10

type UploadHandler struct {
	uc     upload.UseCase
	logger logger.ZapLogger
}

func NewUploadHandler(uc upload.UseCase, log logger.ZapLogger) *UploadHandler {
	return &UploadHandler{uc: uc, logger: log}
}

// receive opens the multipart file in field, bounded by the limit for kind.
func (h *UploadHandler) receive(w http.ResponseWriter, r *http.Request, field string, kind dto.Kind) (*dto.Upload, func(), error) {
	limit := h.uc.Limit(kind)
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, usecase.TooLarge(limit)
		}
		return nil, nil, apperror.Validation("invalid_body", "expected a multipart form").Wrap(err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, usecase.ErrNoFile.WithParam("Field", field)
		}
		return nil, nil, apperror.Validation("invalid_body", "could not read the uploaded file").Wrap(err)
	}
	cleanup := func() {
		file.Close()
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}
	return &dto.Upload{Kind: kind, Size: header.Size, Reader: file}, cleanup, nil
}

func (h *UploadHandler) ProductImage(w http.ResponseWriter, r *http.Request) {
	file, cleanup, err := h.receive(w, r, "image", dto.KindProduct)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	defer cleanup()

	info, err := h.uc.UploadProductImage(r.Context(), file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusCreated, "image uploaded", info)
}

func (h *UploadHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	file, cleanup, err := h.receive(w, r, "avatar", dto.KindAvatar)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	defer cleanup()

	info, u, err := h.uc.UploadAvatar(r.Context(), auth.UserID(r.Context()), file)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusCreated, "avatar uploaded", map[string]any{"file": info, "user": u})
}

func (h *UploadHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteFile(r.Context(), chi.URLParam(r, "filename")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "file deleted", nil)
}

func (h *UploadHandler) FileInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.uc.FileInfo(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "file info", info)
}
