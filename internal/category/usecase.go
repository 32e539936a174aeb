package category

import (
	"context"

	"github.com/fekuna/buffet-service/internal/category/dto"
	"github.com/fekuna/buffet-service/internal/model"
)

type UseCase interface {
	CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	// Resolve accepts either a numeric id or a slug.
	Resolve(ctx context.Context, ref string) (*model.Category, error)
	ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error)
	UpdateCategory(ctx context.Context, id int64, input *dto.UpdateCategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}
