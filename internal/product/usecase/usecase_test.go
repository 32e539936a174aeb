package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
	catDTO "github.com/fekuna/buffet-service/internal/category/dto"
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/product/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/fekuna/buffet-service/pkg/search"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	products   map[int64]*model.Product
	referenced map[int64]bool
	deleted    []int64
	archived   []int64
	findAll    func(f *dto.ProductFilters) ([]model.Product, int, error)
}

func newStubRepo() *stubRepo {
	return &stubRepo{products: map[int64]*model.Product{}, referenced: map[int64]bool{}}
}

func (s *stubRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = int64(len(s.products) + 1)
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *stubRepo) FindByIDs(_ context.Context, ids []int64) ([]model.Product, error) {
	var out []model.Product
	// deliberately unordered relative to ids
	for i := len(ids) - 1; i >= 0; i-- {
		if p, ok := s.products[ids[i]]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubRepo) FindAll(_ context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	if s.findAll != nil {
		return s.findAll(f)
	}
	return nil, 0, nil
}

func (s *stubRepo) Update(_ context.Context, p *model.Product) error {
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	delete(s.products, id)
	return nil
}

func (s *stubRepo) Archive(_ context.Context, id int64, at time.Time) error {
	s.archived = append(s.archived, id)
	s.products[id].Available = false
	s.products[id].ArchivedAt = &at
	return nil
}

func (s *stubRepo) IsReferenced(_ context.Context, id int64) (bool, error) {
	return s.referenced[id], nil
}

func (s *stubRepo) Suggestions(_ context.Context, prefix string, limit int) ([]string, error) {
	return []string{prefix + " wrap"}, nil
}

func (s *stubRepo) PriceRange(context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return decimal.NewFromInt(10), decimal.NewFromInt(120), nil
}

type stubCategories struct{}

func (stubCategories) CreateCategory(context.Context, *catDTO.CreateCategoryInput) (*model.Category, error) {
	return nil, nil
}

func (stubCategories) GetCategory(_ context.Context, id int64) (*model.Category, error) {
	if id == 1 {
		return &model.Category{BaseModel: model.BaseModel{ID: 1}, Name: "Snacks", Slug: "snacks", IsActive: true}, nil
	}
	return nil, apperror.NotFound("category")
}

func (s stubCategories) Resolve(ctx context.Context, ref string) (*model.Category, error) {
	return s.GetCategory(ctx, 1)
}

func (stubCategories) ListCategories(context.Context, *catDTO.CategoryFilters) ([]model.Category, int, error) {
	return []model.Category{{Name: "Snacks"}}, 1, nil
}

func (stubCategories) UpdateCategory(context.Context, int64, *catDTO.UpdateCategoryInput) (*model.Category, error) {
	return nil, nil
}

func (stubCategories) DeleteCategory(context.Context, int64) error { return nil }

type stubIndex struct {
	hits []string
	err  error
}

func (s *stubIndex) CreateIndex(context.Context, string, string) error { return nil }
func (s *stubIndex) Index(context.Context, string, string, any) error   { return nil }
func (s *stubIndex) Delete(context.Context, string, string) error       { return nil }

func (s *stubIndex) Search(context.Context, string, map[string]any) (*search.SearchResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := &search.SearchResponse{}
	res.Hits.Total.Value = len(s.hits)
	for _, id := range s.hits {
		res.Hits.Hits = append(res.Hits.Hits, search.Hit{ID: id})
	}
	return res, nil
}

func newUseCase(repo *stubRepo) *productUseCase {
	return NewProductUseCase(repo, stubCategories{}, nil, logger.NewNop()).(*productUseCase)
}

func catID(id int64) *int64 { return &id }

func TestCreateProduct(t *testing.T) {
	repo := newStubRepo()
	uc := newUseCase(repo)
	promo := decimal.NewFromInt(80)

	p, err := uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		Name:             "Chicken <i>wrap</i>",
		Price:            decimal.NewFromInt(100),
		CategoryID:       catID(1),
		Promotion:        true,
		PromotionalPrice: &promo,
	})
	require.NoError(t, err)
	assert.Equal(t, "Chicken wrap", p.Name)
	assert.True(t, p.Available)
	assert.True(t, p.UnitPrice().Equal(promo))
}

func TestCreateProductValidation(t *testing.T) {
	uc := newUseCase(newStubRepo())

	_, err := uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		Name:       "X",
		Price:      decimal.NewFromInt(-1),
		CategoryID: catID(42),
	})
	require.Error(t, err)
	appErr := apperror.As(err)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)

	var fields []string
	for _, item := range appErr.Items {
		fields = append(fields, item.Field)
	}
	assert.ElementsMatch(t, []string{"name", "price", "category_id"}, fields)
}

func TestUpdateProductClearsPromotionalPrice(t *testing.T) {
	repo := newStubRepo()
	uc := newUseCase(repo)
	promo := decimal.NewFromInt(80)
	p, err := uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		Name: "Combo", Price: decimal.NewFromInt(100), CategoryID: catID(1), Promotion: true, PromotionalPrice: &promo,
	})
	require.NoError(t, err)

	updated, err := uc.UpdateProduct(context.Background(), p.ID, &dto.UpdateProductInput{ClearPromotionalPrice: true})
	require.NoError(t, err)
	assert.False(t, updated.PromotionalPrice.Valid)
	assert.True(t, updated.Promotion)
	assert.True(t, updated.UnitPrice().Equal(decimal.NewFromInt(100)))
}

func TestDeleteProductArchivesWhenReferenced(t *testing.T) {
	repo := newStubRepo()
	uc := newUseCase(repo)
	sold, err := uc.CreateProduct(context.Background(), &dto.CreateProductInput{Name: "Sold item", Price: decimal.NewFromInt(5), CategoryID: catID(1)})
	require.NoError(t, err)
	unsold, err := uc.CreateProduct(context.Background(), &dto.CreateProductInput{Name: "Never sold", Price: decimal.NewFromInt(5), CategoryID: catID(1)})
	require.NoError(t, err)
	repo.referenced[sold.ID] = true

	res, err := uc.DeleteProduct(context.Background(), sold.ID)
	require.NoError(t, err)
	assert.True(t, res.Archived)
	assert.Equal(t, []int64{sold.ID}, repo.archived)

	still, err := uc.GetProduct(context.Background(), sold.ID)
	require.NoError(t, err)
	assert.False(t, still.Available)
	assert.NotNil(t, still.ArchivedAt)

	res, err = uc.DeleteProduct(context.Background(), unsold.ID)
	require.NoError(t, err)
	assert.False(t, res.Archived)
	assert.Equal(t, []int64{unsold.ID}, repo.deleted)

	_, err = uc.GetProduct(context.Background(), unsold.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestListProductsUsesIndexOrder(t *testing.T) {
	repo := newStubRepo()
	for _, name := range []string{"Arepa", "Burrito", "Churro"} {
		require.NoError(t, repo.Create(context.Background(), &model.Product{Name: name}))
	}
	uc := newUseCase(repo)
	uc.es = &stubIndex{hits: []string{"3", "1"}}

	products, total, err := uc.ListProducts(context.Background(), &dto.ProductFilters{SearchQuery: "r", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, products, 2)
	assert.Equal(t, "Churro", products[0].Name)
	assert.Equal(t, "Arepa", products[1].Name)
}

func TestListProductsFallsBackToSQL(t *testing.T) {
	repo := newStubRepo()
	called := false
	repo.findAll = func(f *dto.ProductFilters) ([]model.Product, int, error) {
		called = true
		assert.Equal(t, "wrap", f.SearchQuery)
		return []model.Product{{Name: "Chicken wrap"}}, 1, nil
	}
	uc := newUseCase(repo)
	uc.es = &stubIndex{err: errors.New("cluster red")}

	products, total, err := uc.ListProducts(context.Background(), &dto.ProductFilters{SearchQuery: " wrap "})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 1, total)
	assert.Len(t, products, 1)
}

func TestSuggestionsNeedTwoCharacters(t *testing.T) {
	uc := newUseCase(newStubRepo())

	names, err := uc.Suggestions(context.Background(), "c")
	require.NoError(t, err)
	assert.Empty(t, names)

	names, err = uc.Suggestions(context.Background(), "ch")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch wrap"}, names)
}

func TestSearchFilters(t *testing.T) {
	uc := newUseCase(newStubRepo())
	f, err := uc.SearchFilters(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.Categories, 1)
	assert.True(t, f.PriceRange.Max.Equal(decimal.NewFromInt(120)))
}

func TestListProductsDropsRowsTheIndexHasNotCaughtUpWith(t *testing.T) {
	repo := newStubRepo()
	require.NoError(t, repo.Create(context.Background(), &model.Product{Name: "Arepa", Available: true}))
	require.NoError(t, repo.Create(context.Background(), &model.Product{Name: "Burrito", Available: false}))
	uc := newUseCase(repo)
	uc.es = &stubIndex{hits: []string{"1", "2"}}

	available := true
	products, total, err := uc.ListProducts(context.Background(), &dto.ProductFilters{
		SearchQuery: "a", Available: &available, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Arepa", products[0].Name)
	assert.Equal(t, 1, total)
}
