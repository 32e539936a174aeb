package dto

import (
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalUsers        int             `json:"total_users"`
	TotalProducts     int             `json:"total_products"`
	TotalOrders       int             `json:"total_orders"`
	OpenOrders        int             `json:"open_orders"`
	DeliveredOrders   int             `json:"delivered_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue    decimal.Decimal `json:"monthly_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// Dashboard lists in Degraded the figures that could not be computed and
// were reported as zero.
type Dashboard struct {
	Stats        DashboardStats `json:"stats"`
	RecentOrders []model.Order  `json:"recent_orders"`
	TopProducts  []ProductSales `json:"top_products"`
	Degraded     []string       `json:"degraded,omitempty"`
}

type ProductSales struct {
	ProductID    int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Price        decimal.Decimal `db:"price" json:"price"`
	ImageURL     *string         `db:"image_url" json:"image_url"`
	CategoryName *string         `db:"category_name" json:"category_name"`
	TotalSold    int             `db:"total_sold" json:"total_sold"`
	Revenue      decimal.Decimal `db:"revenue" json:"revenue"`
}

// MonthlyFigure is one calendar month; Period is formatted YYYY-MM.
type MonthlyFigure struct {
	Period     string          `db:"period" json:"period"`
	OrderCount int             `db:"order_count" json:"order_count"`
	Revenue    decimal.Decimal `db:"revenue" json:"revenue"`
}

type CustomerSpend struct {
	UserID     int64           `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Email      string          `db:"email" json:"email"`
	OrderCount int             `db:"order_count" json:"order_count"`
	TotalSpent decimal.Decimal `db:"total_spent" json:"total_spent"`
}

type AdvancedStats struct {
	MonthlyOrders []MonthlyFigure `json:"monthly_orders"`
	TopProducts   []ProductSales  `json:"top_products"`
	TopUsers      []CustomerSpend `json:"top_users"`
	Degraded      []string        `json:"degraded,omitempty"`
}
