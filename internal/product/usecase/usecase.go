package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/category"
	catDTO "github.com/fekuna/buffet-service/internal/category/dto"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/product"
	"github.com/fekuna/buffet-service/internal/product/dto"
	"github.com/fekuna/buffet-service/internal/sanitize"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	quickSearchLimit = 5
	suggestionLimit  = 10
	maxDescription   = 500
)

type productUseCase struct {
	repo       product.Repository
	categories category.UseCase
	es         product.Indexer
	logger     logger.ZapLogger
	now        func() time.Time
}

// NewProductUseCase wires the catalog. es may be nil, in which case search runs on SQL.
func NewProductUseCase(repo product.Repository, categories category.UseCase, es product.Indexer, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:       repo,
		categories: categories,
		es:         es,
		logger:     log,
		now:        time.Now,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	now := uc.now()
	p := &model.Product{
		BaseModel:   model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:        sanitize.Text(input.Name),
		Description: sanitize.Optional(input.Description),
		Price:       input.Price,
		CategoryID:  input.CategoryID,
		ImageURL:    input.ImageURL,
		Available:   true,
		Featured:    input.Featured,
		Promotion:   input.Promotion,
	}
	if input.Available != nil {
		p.Available = *input.Available
	}
	if input.PromotionalPrice != nil {
		p.PromotionalPrice = decimal.NewNullDecimal(*input.PromotionalPrice)
	}

	var fields apperror.Fields
	fields.Check(p.CategoryID != nil, "category_id", "category_required", "category is required")
	if err := uc.validate(ctx, p, &fields); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	uc.logger.Info("product created", zap.Int64("product_id", p.ID))

	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("product")
	}
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	filters.SearchQuery = strings.TrimSpace(filters.SearchQuery)

	if filters.SearchQuery != "" && uc.es != nil {
		products, total, err := uc.searchElastic(ctx, filters)
		if err == nil {
			return products, total, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	return uc.repo.FindAll(ctx, filters)
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, id int64, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ArchivedAt != nil {
		return nil, apperror.Policy("product_archived", "archived products cannot be edited")
	}

	if input.Name != nil {
		p.Name = sanitize.Text(*input.Name)
	}
	if input.Description != nil {
		p.Description = sanitize.Optional(input.Description)
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.CategoryID != nil {
		p.CategoryID = input.CategoryID
	}
	if input.ImageURL != nil {
		p.ImageURL = input.ImageURL
		if strings.TrimSpace(*input.ImageURL) == "" {
			p.ImageURL = nil
		}
	}
	if input.Available != nil {
		p.Available = *input.Available
	}
	if input.Featured != nil {
		p.Featured = *input.Featured
	}
	if input.Promotion != nil {
		p.Promotion = *input.Promotion
	}
	if input.ClearPromotionalPrice {
		p.PromotionalPrice = decimal.NullDecimal{}
	} else if input.PromotionalPrice != nil {
		p.PromotionalPrice = decimal.NewNullDecimal(*input.PromotionalPrice)
	}

	var fields apperror.Fields
	if err := uc.validate(ctx, p, &fields); err != nil {
		return nil, err
	}

	p.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

// DeleteProduct hard-deletes unreferenced products. Products that appear in
// any order are archived instead so order history keeps its rows.
func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) (*dto.DeleteResult, error) {
	p, err := uc.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	referenced, err := uc.repo.IsReferenced(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &dto.DeleteResult{ID: id}
	if referenced {
		if p.ArchivedAt == nil {
			if err := uc.repo.Archive(ctx, id, uc.now()); err != nil {
				return nil, err
			}
		}
		res.Archived = true
	} else if err := uc.repo.Delete(ctx, id); err != nil {
		if !apperror.IsKind(err, apperror.KindPolicy) {
			return nil, err
		}
		// referenced by an order created after the check
		if err := uc.repo.Archive(ctx, id, uc.now()); err != nil {
			return nil, err
		}
		res.Archived = true
	}

	uc.logger.Info("product removed", zap.Int64("product_id", id), zap.Bool("archived", res.Archived))
	go uc.removeFromElastic(context.Background(), id)

	return res, nil
}

func (uc *productUseCase) QuickSearch(ctx context.Context, query string) ([]model.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Product{}, nil
	}
	available := true
	products, _, err := uc.ListProducts(ctx, &dto.ProductFilters{
		SearchQuery: query,
		Available:   &available,
		SortBy:      "name",
		Page:        1,
		PageSize:    quickSearchLimit,
	})
	return products, err
}

func (uc *productUseCase) Suggestions(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if utf8.RuneCountInString(prefix) < 2 {
		return []string{}, nil
	}
	return uc.repo.Suggestions(ctx, prefix, suggestionLimit)
}

func (uc *productUseCase) SearchFilters(ctx context.Context) (*dto.SearchFilters, error) {
	active := true
	categories, _, err := uc.categories.ListCategories(ctx, &catDTO.CategoryFilters{IsActive: &active})
	if err != nil {
		return nil, err
	}
	min, max, err := uc.repo.PriceRange(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SearchFilters{
		Categories: categories,
		PriceRange: dto.PriceRange{Min: min, Max: max},
	}, nil
}

func (uc *productUseCase) validate(ctx context.Context, p *model.Product, fields *apperror.Fields) error {
	n := utf8.RuneCountInString(p.Name)
	fields.Check(n >= 2 && n <= 100, "name", "invalid_product_name", "name must be between 2 and 100 characters")
	fields.Check(p.Description == nil || utf8.RuneCountInString(*p.Description) <= maxDescription,
		"description", "invalid_description", "description must be at most 500 characters")
	fields.Check(!p.Price.IsNegative(), "price", "invalid_price", "price must be zero or greater")
	fields.Check(!p.PromotionalPrice.Valid || !p.PromotionalPrice.Decimal.IsNegative(),
		"promotional_price", "invalid_promotional_price", "promotional price must be zero or greater")

	if p.CategoryID != nil {
		if _, err := uc.categories.GetCategory(ctx, *p.CategoryID); err != nil {
			if !apperror.IsKind(err, apperror.KindNotFound) {
				return err
			}
			fields.Check(false, "category_id", "category_not_found", "category does not exist")
		}
	}
	return fields.Err()
}
