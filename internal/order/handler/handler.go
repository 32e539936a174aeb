package handler

import (
	"net/http"

	"github.com/fekuna/buffet-service/internal/auth"
	"github.com/fekuna/buffet-service/internal/httpx"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/order"
	"github.com/fekuna/buffet-service/internal/order/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{uc: uc, logger: log}
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func filters(r *http.Request) *dto.OrderFilters {
	page, limit := httpx.Page(r)
	return &dto.OrderFilters{
		Status:   model.OrderStatus(httpx.QueryString(r, "status")),
		Page:     page,
		PageSize: limit,
	}
}

// ValidateCart prices a cart without persisting anything.
func (h *OrderHandler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	var input dto.ValidateCartInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.uc.ValidateCart(r.Context(), input.Items)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	message := "cart is valid"
	if !res.Valid {
		message = "cart has invalid items"
	}
	httpx.Success(w, r, http.StatusOK, message, res)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateOrderInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.uc.CreateOrder(r.Context(), principal(r), &input)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusCreated, "order created", res)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.uc.GetOrder(r.Context(), principal(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "order", res)
}

func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	f := filters(r)
	orders, total, err := h.uc.ListMyOrders(r.Context(), principal(r), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Paginated(w, r, "orders", orders, httpx.NewPagination(f.Page, f.PageSize, total))
}

func (h *OrderHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.uc.MyStats(r.Context(), principal(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "order stats", stats)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	f := filters(r)
	f.UserID = httpx.QueryInt64(r, "user_id")
	orders, total, err := h.uc.ListOrders(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Paginated(w, r, "orders", orders, httpx.NewPagination(f.Page, f.PageSize, total))
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.uc.CancelOrder(r.Context(), principal(r), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "order cancelled", res)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var input dto.UpdateStatusInput
	if err := httpx.Decode(w, r, &input); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.uc.UpdateStatus(r.Context(), principal(r), id, input.Status)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "order status updated", res)
}

func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.uc.DeleteOrder(r.Context(), principal(r), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "order deleted", nil)
}

func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.uc.Stats(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "order stats", stats)
}
