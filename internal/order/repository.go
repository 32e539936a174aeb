package order

import (
	"context"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/order/dto"
)

// DecideFunc inspects a locked order and returns the status to move it to.
type DecideFunc func(o *model.Order) (model.OrderStatus, error)

type Repository interface {
	// Create persists the order and its items in one transaction and assigns
	// the order number. Nothing is persisted when it returns an error.
	Create(ctx context.Context, o *model.Order, items []model.OrderItem) error
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	// Transition locks the row, applies decide and writes the new status.
	Transition(ctx context.Context, id int64, decide DecideFunc) (*model.Order, model.OrderStatus, error)
	Delete(ctx context.Context, id int64, check func(o *model.Order) error) error
	Stats(ctx context.Context) (*dto.OrderStats, error)
	UserStats(ctx context.Context, userID int64) (*dto.UserOrderStats, error)
}
