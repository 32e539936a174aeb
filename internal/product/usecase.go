package product

import (
	"context"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/product/dto"
	"github.com/fekuna/buffet-service/pkg/search"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, id int64, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*dto.DeleteResult, error)

	QuickSearch(ctx context.Context, query string) ([]model.Product, error)
	Suggestions(ctx context.Context, prefix string) ([]string, error)
	SearchFilters(ctx context.Context) (*dto.SearchFilters, error)
}

// Indexer is the search backend; *search.Client satisfies it.
type Indexer interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc any) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]any) (*search.SearchResponse, error)
}
