package report

import (
	"context"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	orderDTO "github.com/fekuna/buffet-service/internal/order/dto"
	"github.com/fekuna/buffet-service/internal/report/dto"
	"github.com/shopspring/decimal"
)

// Repository runs read-only aggregates. Sums are zero, never null, when no rows match.
type Repository interface {
	CountUsers(ctx context.Context) (int, error)
	CountProducts(ctx context.Context) (int, error)
	CountOrders(ctx context.Context, statuses ...model.OrderStatus) (int, error)
	// Revenue sums delivered orders created at or after since.
	Revenue(ctx context.Context, since time.Time) (decimal.Decimal, error)
	TopProducts(ctx context.Context, limit int) ([]dto.ProductSales, error)
	MonthlySeries(ctx context.Context, since time.Time) ([]dto.MonthlyFigure, error)
	TopCustomers(ctx context.Context, limit int) ([]dto.CustomerSpend, error)
}

// OrderLister pages through orders newest first; the order repository satisfies it.
type OrderLister interface {
	FindAll(ctx context.Context, filters *orderDTO.OrderFilters) ([]model.Order, int, error)
}
