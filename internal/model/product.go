package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name             string              `db:"name" json:"name"`
	Description      *string             `db:"description" json:"description"`
	Price            decimal.Decimal     `db:"price" json:"price"`
	CategoryID       *int64              `db:"category_id" json:"category_id"`
	ImageURL         *string             `db:"image_url" json:"image_url"`
	Available        bool                `db:"available" json:"available"`
	Featured         bool                `db:"featured" json:"featured"`
	Promotion        bool                `db:"promotion" json:"promotion"`
	PromotionalPrice decimal.NullDecimal `db:"promotional_price" json:"promotional_price"`
	ArchivedAt       *time.Time          `db:"archived_at" json:"archived_at,omitempty"`
	CategoryName     *string             `db:"category_name" json:"category_name,omitempty"`
}

// UnitPrice is the price an order item snapshots: the promotional price when a
// promotion is active and one is set, the base price otherwise.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.Promotion && p.PromotionalPrice.Valid {
		return p.PromotionalPrice.Decimal
	}
	return p.Price
}
