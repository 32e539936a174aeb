package product

import (
	"context"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/product/dto"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int64) error
	Archive(ctx context.Context, id int64, at time.Time) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
	Suggestions(ctx context.Context, prefix string, limit int) ([]string, error)
	PriceRange(ctx context.Context) (min, max decimal.Decimal, err error)
}
