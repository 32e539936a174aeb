package dto

import (
	"github.com/fekuna/buffet-service/internal/model"
	"github.com/shopspring/decimal"
)

type ProductFilters struct {
	CategoryID  *int64           `json:"category_id,omitempty"`
	Available   *bool            `json:"available,omitempty"`
	Featured    *bool            `json:"featured,omitempty"`
	Promotion   *bool            `json:"promotion,omitempty"`
	MinPrice    *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice    *decimal.Decimal `json:"max_price,omitempty"`
	SearchQuery string           `json:"q,omitempty"`
	SortBy      string           `json:"sort_by,omitempty"`
	SortOrder   string           `json:"sort_order,omitempty"`
	Page        int              `json:"page"`
	PageSize    int              `json:"page_size"`
}

type CreateProductInput struct {
	Name             string           `json:"name"`
	Description      *string          `json:"description"`
	Price            decimal.Decimal  `json:"price"`
	CategoryID       *int64           `json:"category_id"`
	ImageURL         *string          `json:"image_url"`
	Available        *bool            `json:"available"`
	Featured         bool             `json:"featured"`
	Promotion        bool             `json:"promotion"`
	PromotionalPrice *decimal.Decimal `json:"promotional_price"`
}

// UpdateProductInput leaves nil fields untouched. ClearPromotionalPrice
// removes the promotional price, which a nil pointer cannot express.
type UpdateProductInput struct {
	Name                  *string          `json:"name"`
	Description           *string          `json:"description"`
	Price                 *decimal.Decimal `json:"price"`
	CategoryID            *int64           `json:"category_id"`
	ImageURL              *string          `json:"image_url"`
	Available             *bool            `json:"available"`
	Featured              *bool            `json:"featured"`
	Promotion             *bool            `json:"promotion"`
	PromotionalPrice      *decimal.Decimal `json:"promotional_price"`
	ClearPromotionalPrice bool             `json:"clear_promotional_price"`
}

type DeleteResult struct {
	ID       int64 `json:"id"`
	Archived bool  `json:"archived"`
}

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

type SearchFilters struct {
	Categories []model.Category `json:"categories"`
	PriceRange PriceRange       `json:"price_range"`
}
