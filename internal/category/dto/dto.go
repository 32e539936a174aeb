package dto

type CategoryFilters struct {
	IsActive   *bool
	WithCounts bool
	Search     string
	Page       int
	PageSize   int
}

type CreateCategoryInput struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateCategoryInput leaves nil fields untouched.
type UpdateCategoryInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}
