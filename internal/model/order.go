package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusDelivered: 4,
}

func (s OrderStatus) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Rank is the position of s on the success path, or -1 for cancelled and unknown states.
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentQR   PaymentMethod = "qr"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentQR:
		return true
	}
	return false
}

type Order struct {
	BaseModel
	UserID        int64           `db:"user_id" json:"user_id"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Status        OrderStatus     `db:"status" json:"status"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	OrderNumber   string          `db:"order_number" json:"order_number"`
	Notes         *string         `db:"notes" json:"notes"`
	ItemCount     *int            `db:"item_count" json:"item_count,omitempty"`
	User          *UserSummary    `db:"-" json:"user,omitempty"`
	Items         []OrderItem     `db:"-" json:"items,omitempty"`
}

// Age is the time elapsed since the order was created.
func (o *Order) Age(now time.Time) time.Duration {
	return now.Sub(o.CreatedAt)
}

type OrderItem struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"order_id"`
	ProductID    int64           `db:"product_id" json:"product_id"`
	Quantity     int             `db:"quantity" json:"quantity"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Subtotal     decimal.Decimal `db:"subtotal" json:"subtotal"`
	ProductName  string          `db:"product_name" json:"product_name,omitempty"`
	ProductImage *string         `db:"product_image" json:"product_image,omitempty"`
}
