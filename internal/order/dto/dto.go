package dto

import (
	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/shopspring/decimal"
)

type CartItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type ValidateCartInput struct {
	Items []CartItemInput `json:"items"`
}

type CreateOrderInput struct {
	Items         []CartItemInput     `json:"items"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	Notes         *string             `json:"notes"`
}

type UpdateStatusInput struct {
	Status model.OrderStatus `json:"status"`
}

// CartLine is a validated cart entry priced at its snapshot unit price.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  *string         `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartValidation struct {
	Valid  bool                 `json:"valid"`
	Items  []CartLine           `json:"items"`
	Total  decimal.Decimal      `json:"total"`
	Errors []apperror.ItemError `json:"errors,omitempty"`
}

type OrderFilters struct {
	UserID   *int64            `json:"user_id,omitempty"`
	Status   model.OrderStatus `json:"status,omitempty"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// OrderWithQR is an order plus a PNG data URL encoding its id. QRCode is
// empty when the code could not be generated.
type OrderWithQR struct {
	Order  *model.Order `json:"order"`
	QRCode string       `json:"qr_code,omitempty"`
}

type OrderStats struct {
	TotalOrders    int                       `db:"total_orders" json:"total_orders"`
	TotalRevenue   decimal.Decimal           `db:"total_revenue" json:"total_revenue"`
	AverageOrder   decimal.Decimal           `db:"average_order" json:"average_order"`
	TodayOrders    int                       `db:"today_orders" json:"today_orders"`
	OrdersByStatus map[model.OrderStatus]int `db:"-" json:"orders_by_status"`
}

type UserOrderStats struct {
	TotalOrders     int             `db:"total_orders" json:"total_orders"`
	ActiveOrders    int             `db:"active_orders" json:"active_orders"`
	DeliveredOrders int             `db:"delivered_orders" json:"delivered_orders"`
	CancelledOrders int             `db:"cancelled_orders" json:"cancelled_orders"`
	TotalSpent      decimal.Decimal `db:"total_spent" json:"total_spent"`
}
