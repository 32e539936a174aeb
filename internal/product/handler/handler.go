package handler

import (
	"net/http"

	"github.com/fekuna/buffet-service/internal/category"
	"github.com/fekuna/buffet-service/internal/httpx"
	"github.com/fekuna/buffet-service/internal/product"
	"github.com/fekuna/buffet-service/internal/product/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	uc         product.UseCase
	categories category.UseCase
	logger     logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, categories category.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:         uc,
		categories: categories,
		logger:     log,
	}
}

func parseFilters(r *http.Request) *dto.ProductFilters {
	page, limit := httpx.Page(r)
	f := &dto.ProductFilters{
		CategoryID:  httpx.QueryInt64(r, "category_id"),
		Featured:    httpx.QueryBool(r, "featured"),
		Promotion:   httpx.QueryBool(r, "promotion"),
		MinPrice:    queryDecimal(r, "min_price"),
		MaxPrice:    queryDecimal(r, "max_price"),
		SearchQuery: httpx.QueryString(r, "q"),
		SortBy:      httpx.QueryString(r, "sort_by"),
		SortOrder:   httpx.QueryString(r, "sort_order"),
		Page:        page,
		PageSize:    limit,
	}
	if f.SearchQuery == "" {
		f.SearchQuery = httpx.QueryString(r, "search")
	}
	return f
}

func queryDecimal(r *http.Request, key string) *decimal.Decimal {
	raw := httpx.QueryString(r, key)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

// ListProducts is the public catalog: available products only.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	available := true
	filters.Available = &available
	h.list(w, r, filters)
}

// ListAllProducts also returns unavailable products.
func (h *ProductHandler) ListAllProducts(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	filters.Available = httpx.QueryBool(r, "available")
	h.list(w, r, filters)
}

func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.categories.Resolve(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	filters := parseFilters(r)
	available := true
	filters.Available = &available
	filters.CategoryID = &cat.ID

	products, total, err := h.uc.ListProducts(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Paginated(w, r, "products", map[string]any{"category": cat, "products": products},
		httpx.NewPagination(filters.Page, filters.PageSize, total))
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, filters *dto.ProductFilters) {
	products, total, err := h.uc.ListProducts(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Paginated(w, r, "products", products, httpx.NewPagination(filters.Page, filters.PageSize, total))
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.uc.GetProduct(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "product", p)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateProductInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.uc.CreateProduct(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusCreated, "product created", p)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var input dto.UpdateProductInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := h.uc.UpdateProduct(r.Context(), id, &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "product updated", p)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.uc.DeleteProduct(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	msg := "product deleted"
	if res.Archived {
		msg = "product has orders; it was disabled instead of deleted"
	}
	httpx.Success(w, r, http.StatusOK, msg, res)
}

func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	available := true
	filters.Available = &available
	h.list(w, r, filters)
}

func (h *ProductHandler) QuickSearch(w http.ResponseWriter, r *http.Request) {
	products, err := h.uc.QuickSearch(r.Context(), httpx.QueryString(r, "q"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "products", products)
}

func (h *ProductHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	names, err := h.uc.Suggestions(r.Context(), httpx.QueryString(r, "q"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "suggestions", names)
}

func (h *ProductHandler) SearchFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.uc.SearchFilters(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "search filters", filters)
}
