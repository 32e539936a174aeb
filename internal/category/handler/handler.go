package handler

import (
	"net/http"

	"github.com/fekuna/buffet-service/internal/category"
	"github.com/fekuna/buffet-service/internal/category/dto"
	"github.com/fekuna/buffet-service/internal/httpx"
	"github.com/fekuna/buffet-service/pkg/logger"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{
		uc:     uc,
		logger: log,
	}
}

// ListActive is the public listing with product counts.
func (h *CategoryHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	active := true
	categories, _, err := h.uc.ListCategories(r.Context(), &dto.CategoryFilters{IsActive: &active, WithCounts: true})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "categories", categories)
}

// ListAll includes inactive categories.
func (h *CategoryHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, limit := httpx.Page(r)
	filters := &dto.CategoryFilters{
		IsActive:   httpx.QueryBool(r, "active"),
		Search:     httpx.QueryString(r, "search"),
		WithCounts: true,
		Page:       page,
		PageSize:   limit,
	}
	categories, total, err := h.uc.ListCategories(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Paginated(w, r, "categories", categories, httpx.NewPagination(page, limit, total))
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	cat, err := h.uc.GetCategory(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "category", cat)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateCategoryInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	cat, err := h.uc.CreateCategory(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusCreated, "category created", cat)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var input dto.UpdateCategoryInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	cat, err := h.uc.UpdateCategory(r.Context(), id, &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "category updated", cat)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.uc.DeleteCategory(r.Context(), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "category deleted", nil)
}
