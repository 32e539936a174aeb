package order

import (
	"context"

	"github.com/fekuna/buffet-service/internal/auth"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/order/dto"
)

type UseCase interface {
	ValidateCart(ctx context.Context, items []dto.CartItemInput) (*dto.CartValidation, error)
	CreateOrder(ctx context.Context, actor *auth.Principal, input *dto.CreateOrderInput) (*dto.OrderWithQR, error)
	GetOrder(ctx context.Context, actor *auth.Principal, id int64) (*dto.OrderWithQR, error)
	ListMyOrders(ctx context.Context, actor *auth.Principal, filters *dto.OrderFilters) ([]model.Order, int, error)
	MyStats(ctx context.Context, actor *auth.Principal) (*dto.UserOrderStats, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	CancelOrder(ctx context.Context, actor *auth.Principal, id int64) (*Transition, error)
	UpdateStatus(ctx context.Context, actor *auth.Principal, id int64, status model.OrderStatus) (*Transition, error)
	DeleteOrder(ctx context.Context, actor *auth.Principal, id int64) error
	Stats(ctx context.Context) (*dto.OrderStats, error)
}

// Catalog resolves products for cart validation; product.Repository satisfies it.
type Catalog interface {
	FindByID(ctx context.Context, id int64) (*model.Product, error)
}

// CodeGenerator renders the scannable code for an order.
type CodeGenerator interface {
	DataURL(orderID int64) (string, error)
}
