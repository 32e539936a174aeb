package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// maxOffset keeps (page-1)*limit representable as a Postgres integer OFFSET.
	maxOffset = math.MaxInt32
)

// Decode reads a JSON body into dst.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("empty_body", "request body is required")
		}
		return apperror.Validation("invalid_body", "request body is not valid JSON").Wrap(err)
	}
	return nil
}

// PathID parses a positive integer route parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("invalid_id", "invalid "+name).WithField(name)
	}
	return id, nil
}

// Page reads page and limit query parameters, clamped to sane bounds.
// The offset derived from them never exceeds maxOffset.
func Page(r *http.Request) (page, limit int) {
	page = QueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = QueryInt(r, "limit", DefaultPageSize)
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if maxPage := maxOffset/limit + 1; page > maxPage {
		page = maxPage
	}
	return page, limit
}

func QueryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func QueryInt64(r *http.Request, key string) *int64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func QueryBool(r *http.Request, key string) *bool {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func QueryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
