package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/product/dto"
	"go.uber.org/zap"
)

const indexName = "products"

const indexMapping = `{
	"mappings": {
		"properties": {
			"id":          { "type": "long" },
			"name":        { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"description": { "type": "text" },
			"category_id": { "type": "long" },
			"price":       { "type": "double" },
			"available":   { "type": "boolean" },
			"featured":    { "type": "boolean" },
			"promotion":   { "type": "boolean" },
			"created_at":  { "type": "date" }
		}
	}
}`

type productDocument struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CategoryID  *int64    `json:"category_id"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
	Featured    bool      `json:"featured"`
	Promotion   bool      `json:"promotion"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDocument(p *model.Product) productDocument {
	doc := productDocument{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Price:      p.Price.InexactFloat64(),
		Available:  p.Available,
		Featured:   p.Featured,
		Promotion:  p.Promotion,
		CreatedAt:  p.CreatedAt,
	}
	if p.Description != nil {
		doc.Description = *p.Description
	}
	return doc
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	_ = uc.es.CreateIndex(ctx, indexName, indexMapping)

	if err := uc.es.Index(ctx, indexName, strconv.FormatInt(p.ID, 10), toDocument(p)); err != nil {
		uc.logger.Error("failed to index product", zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) removeFromElastic(ctx context.Context, id int64) {
	if uc.es == nil {
		return
	}
	if err := uc.es.Delete(ctx, indexName, strconv.FormatInt(id, 10)); err != nil {
		uc.logger.Error("failed to delete product from ES", zap.Int64("product_id", id), zap.Error(err))
	}
}

func buildSearchQuery(f *dto.ProductFilters) map[string]any {
	filter := []map[string]any{}
	if f.Available != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"available": *f.Available}})
	}
	if f.CategoryID != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"category_id": *f.CategoryID}})
	}
	if f.Featured != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"featured": *f.Featured}})
	}
	if f.Promotion != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"promotion": *f.Promotion}})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		rng := map[string]any{}
		if f.MinPrice != nil {
			rng["gte"] = f.MinPrice.InexactFloat64()
		}
		if f.MaxPrice != nil {
			rng["lte"] = f.MaxPrice.InexactFloat64()
		}
		filter = append(filter, map[string]any{"range": map[string]any{"price": rng}})
	}

	q := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{
						"multi_match": map[string]any{
							"query":     f.SearchQuery,
							"fields":    []string{"name^3", "description"},
							"fuzziness": "AUTO",
						},
					},
				},
				"filter": filter,
			},
		},
		"_source": []string{"id"},
	}
	if f.PageSize > 0 {
		q["from"] = (f.Page - 1) * f.PageSize
		q["size"] = f.PageSize
	}
	return q
}

// searchElastic ranks with the index and loads rows from the store, so
// results are never staler than the database.
func (uc *productUseCase) searchElastic(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	res, err := uc.es.Search(ctx, indexName, buildSearchQuery(f))
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		if id, err := strconv.ParseInt(hit.ID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}

	rows, err := uc.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[int64]model.Product, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	products := make([]model.Product, 0, len(ids))
	stale := 0
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !matchesFilters(&p, f) {
			stale++
			continue
		}
		products = append(products, p)
	}
	total := res.Hits.Total.Value - stale
	if total < len(products) {
		total = len(products)
	}
	return products, total, nil
}

// matchesFilters re-checks a stored row against the flag filters, since the
// index can lag behind the database.
func matchesFilters(p *model.Product, f *dto.ProductFilters) bool {
	if p.ArchivedAt != nil {
		return false
	}
	if f.Available != nil && p.Available != *f.Available {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.Promotion != nil && p.Promotion != *f.Promotion {
		return false
	}
	if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
		return false
	}
	return true
}
