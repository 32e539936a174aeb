package model

type Category struct {
	BaseModel
	Name         string  `db:"name" json:"name"`
	Slug         string  `db:"slug" json:"slug"`
	Description  *string `db:"description" json:"description"`
	IsActive     bool    `db:"is_active" json:"is_active"`
	ProductCount *int    `db:"product_count" json:"product_count,omitempty"`
}
