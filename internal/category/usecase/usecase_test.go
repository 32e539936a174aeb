package usecase

import (
	"context"
	"testing"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/category/dto"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	byID          map[int64]*model.Category
	productCounts map[int64]int
	created       []*model.Category
	deleted       []int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: map[int64]*model.Category{}, productCounts: map[int64]int{}}
}

func (s *stubRepo) Create(_ context.Context, c *model.Category) error {
	c.ID = int64(len(s.byID) + 1)
	s.byID[c.ID] = c
	s.created = append(s.created, c)
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*model.Category, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *stubRepo) FindBySlug(_ context.Context, slug string) (*model.Category, error) {
	for _, c := range s.byID {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) FindAll(context.Context, *dto.CategoryFilters) ([]model.Category, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) Update(_ context.Context, c *model.Category) error {
	s.byID[c.ID] = c
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

func (s *stubRepo) CountProducts(_ context.Context, id int64) (int, error) {
	return s.productCounts[id], nil
}

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "hot-drinks", NormalizeSlug("  Hot   Drinks "))
	assert.True(t, ValidSlug("combo-2"))
	assert.False(t, ValidSlug("café"))
	assert.False(t, ValidSlug("a"))
	assert.False(t, ValidSlug("snacks_and_more"))
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	repo := newStubRepo()
	uc := NewCategoryUseCase(repo, logger.NewNop())

	cat, err := uc.CreateCategory(context.Background(), &dto.CreateCategoryInput{Name: "Hot Drinks"})
	require.NoError(t, err)
	assert.Equal(t, "hot-drinks", cat.Slug)
	assert.True(t, cat.IsActive)
}

func TestCreateCategoryValidation(t *testing.T) {
	uc := NewCategoryUseCase(newStubRepo(), logger.NewNop())

	_, err := uc.CreateCategory(context.Background(), &dto.CreateCategoryInput{Name: "X", Slug: "bad_slug!"})
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	require.Len(t, appErr.Items, 2)
	assert.Equal(t, "name", appErr.Items[0].Field)
	assert.Equal(t, "slug", appErr.Items[1].Field)
}

func TestUpdateCategoryPatch(t *testing.T) {
	repo := newStubRepo()
	uc := NewCategoryUseCase(repo, logger.NewNop())
	cat, err := uc.CreateCategory(context.Background(), &dto.CreateCategoryInput{Name: "Snacks", Slug: "snacks"})
	require.NoError(t, err)

	inactive := false
	updated, err := uc.UpdateCategory(context.Background(), cat.ID, &dto.UpdateCategoryInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Snacks", updated.Name)
	assert.Equal(t, "snacks", updated.Slug)
	assert.False(t, updated.IsActive)
}

func TestDeleteCategoryRefusedWhileReferenced(t *testing.T) {
	repo := newStubRepo()
	uc := NewCategoryUseCase(repo, logger.NewNop())
	cat, err := uc.CreateCategory(context.Background(), &dto.CreateCategoryInput{Name: "Snacks"})
	require.NoError(t, err)
	repo.productCounts[cat.ID] = 3

	err = uc.DeleteCategory(context.Background(), cat.ID)
	assert.ErrorIs(t, err, ErrCategoryInUse)
	assert.Empty(t, repo.deleted)

	repo.productCounts[cat.ID] = 0
	require.NoError(t, uc.DeleteCategory(context.Background(), cat.ID))
	assert.Equal(t, []int64{cat.ID}, repo.deleted)
}

func TestResolveByIDOrSlug(t *testing.T) {
	repo := newStubRepo()
	uc := NewCategoryUseCase(repo, logger.NewNop())
	cat, err := uc.CreateCategory(context.Background(), &dto.CreateCategoryInput{Name: "Desserts"})
	require.NoError(t, err)

	got, err := uc.Resolve(context.Background(), "desserts")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, got.ID)

	got, err = uc.Resolve(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, got.ID)

	_, err = uc.Resolve(context.Background(), "missing")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}
