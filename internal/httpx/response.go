package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/pkg/i18n"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Data       any                  `json:"data,omitempty"`
	Pagination *Pagination          `json:"pagination,omitempty"`
	Errors     []apperror.ItemError `json:"errors,omitempty"`
	Code       string               `json:"code,omitempty"`
	Field      string               `json:"field,omitempty"`
	Details    any                  `json:"details,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

type settings struct {
	translator *i18n.Translator
	production bool
	logger     logger.ZapLogger
}

type settingsKey struct{}

// Middleware stores response settings on the request context.
func Middleware(translator *i18n.Translator, production bool, log logger.ZapLogger) func(http.Handler) http.Handler {
	s := &settings{translator: translator, production: production, logger: log}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), settingsKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func settingsFrom(ctx context.Context) *settings {
	if s, ok := ctx.Value(settingsKey{}).(*settings); ok {
		return s
	}
	return &settings{logger: logger.NewNop()}
}

func Success(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

func Paginated(w http.ResponseWriter, r *http.Request, message string, data any, p *Pagination) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data, Pagination: p})
}

func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation, apperror.KindPolicy:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindAuthentication:
		return http.StatusUnauthorized
	case apperror.KindAuthorization:
		return http.StatusForbidden
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindTransient:
		return http.StatusServiceUnavailable
	case apperror.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a failure envelope. Diagnostic details are only included outside production.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	s := settingsFrom(r.Context())
	appErr := apperror.As(err)
	status := StatusFor(appErr.Kind)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
	}

	lang := i18n.Language(r)
	data := map[string]any{"Field": appErr.Field}
	for k, v := range appErr.Params {
		data[k] = v
	}

	env := Envelope{
		Success: false,
		Message: s.translator.Localize(lang, appErr.Code, data, appErr.Message),
		Code:    appErr.Code,
		Field:   appErr.Field,
	}
	for _, item := range appErr.Items {
		item.Message = s.translator.Localize(lang, item.Code, map[string]any{"Item": item.Item, "ProductID": item.ProductID, "Field": item.Field}, item.Message)
		env.Errors = append(env.Errors, item)
	}
	if !s.production && appErr.Err != nil {
		env.Details = sanitize(appErr.Err.Error(), 512)
	}

	WriteJSON(w, status, env)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sanitize(value string, limit int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
