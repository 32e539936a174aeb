package usecase

import (
	"context"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/category"
	"github.com/fekuna/buffet-service/internal/category/dto"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/sanitize"
	"github.com/fekuna/buffet-service/pkg/logger"
	"go.uber.org/zap"
)

var ErrCategoryInUse = apperror.Policy("category_in_use", "category has products and cannot be deleted")

type categoryUseCase struct {
	repo   category.Repository
	logger logger.ZapLogger
	now    func() time.Time
}

func NewCategoryUseCase(repo category.Repository, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	name := sanitize.Text(input.Name)
	slug := NormalizeSlug(input.Slug)
	if slug == "" {
		slug = NormalizeSlug(name)
	}

	var fields apperror.Fields
	checkName(&fields, name)
	checkSlug(&fields, slug)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	now := uc.now()
	cat := &model.Category{
		BaseModel:   model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:        name,
		Slug:        slug,
		Description: sanitize.Optional(input.Description),
		IsActive:    true,
	}
	if input.IsActive != nil {
		cat.IsActive = *input.IsActive
	}

	if err := uc.repo.Create(ctx, cat); err != nil {
		return nil, err
	}
	uc.logger.Info("category created", zap.Int64("category_id", cat.ID), zap.String("slug", cat.Slug))
	return cat, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperror.NotFound("category")
	}
	return cat, nil
}

func (uc *categoryUseCase) Resolve(ctx context.Context, ref string) (*model.Category, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return uc.GetCategory(ctx, id)
	}
	cat, err := uc.repo.FindBySlug(ctx, NormalizeSlug(ref))
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperror.NotFound("category")
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, id int64, input *dto.UpdateCategoryInput) (*model.Category, error) {
	cat, err := uc.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields apperror.Fields
	if input.Name != nil {
		cat.Name = sanitize.Text(*input.Name)
		checkName(&fields, cat.Name)
	}
	if input.Slug != nil {
		cat.Slug = NormalizeSlug(*input.Slug)
		checkSlug(&fields, cat.Slug)
	}
	if input.Description != nil {
		cat.Description = sanitize.Optional(input.Description)
	}
	if input.IsActive != nil {
		cat.IsActive = *input.IsActive
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	cat.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := uc.GetCategory(ctx, id); err != nil {
		return err
	}
	count, err := uc.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse.WithParam("Count", count)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		if apperror.IsKind(err, apperror.KindPolicy) {
			return ErrCategoryInUse
		}
		return err
	}
	uc.logger.Info("category deleted", zap.Int64("category_id", id))
	return nil
}

func checkName(f *apperror.Fields, name string) {
	n := utf8.RuneCountInString(name)
	f.Check(n >= 2 && n <= 50, "name", "invalid_category_name", "name must be between 2 and 50 characters")
}

func checkSlug(f *apperror.Fields, slug string) {
	f.Check(ValidSlug(slug), "slug", "invalid_slug", "slug may only contain lowercase letters, digits and hyphens")
}
