package handler

import (
	"net"
	"net/http"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/auth"
	"github.com/fekuna/buffet-service/internal/httpx"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/user"
	"github.com/fekuna/buffet-service/internal/user/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
)

type UserHandler struct {
	uc     user.UseCase
	logger logger.ZapLogger
}

func NewUserHandler(uc user.UseCase, log logger.ZapLogger) *UserHandler {
	return &UserHandler{uc: uc, logger: log}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input dto.RegisterInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.uc.Register(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusCreated, "user registered", res)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input dto.LoginInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	input.ClientIP = clientIP(r)
	res, err := h.uc.Login(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "login successful", res)
}

// Verify echoes the authenticated user so clients can validate a stored token.
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	u, err := h.uc.GetProfile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "token is valid", map[string]any{"user": u})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var input dto.ChangePasswordInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.uc.ChangePassword(r.Context(), auth.UserID(r.Context()), &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "password updated", nil)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.uc.GetProfile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "profile", u)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var input dto.UpdateProfileInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.uc.UpdateProfile(r.Context(), auth.UserID(r.Context()), &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "profile updated", u)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := httpx.Page(r)
	filters := &dto.UserFilters{
		Search:    httpx.QueryString(r, "search"),
		Role:      model.Role(httpx.QueryString(r, "role")),
		SortBy:    httpx.QueryString(r, "sort_by"),
		SortOrder: httpx.QueryString(r, "sort_order"),
		Page:      page,
		PageSize:  limit,
	}
	users, total, err := h.uc.ListUsers(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Paginated(w, r, "users", users, httpx.NewPagination(page, limit, total))
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.uc.GetUser(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "user", u)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateUserInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.uc.CreateUser(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusCreated, "user created", u)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var input dto.UpdateProfileInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.uc.UpdateUser(r.Context(), id, &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "user updated", u)
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var input dto.UpdateRoleInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.uc.UpdateRole(r.Context(), auth.UserID(r.Context()), id, input.Role)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "role updated", u)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.uc.DeleteUser(r.Context(), auth.UserID(r.Context()), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "user deleted", nil)
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.uc.Stats(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "user stats", stats)
}

func (h *UserHandler) Promote(w http.ResponseWriter, r *http.Request) {
	var input dto.PromoteInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if input.Email == "" {
		httpx.Error(w, r, apperror.Validation("email_required", "email is required").WithField("email"))
		return
	}
	u, err := h.uc.PromoteByEmail(r.Context(), input.Email)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "user promoted to admin", u)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
