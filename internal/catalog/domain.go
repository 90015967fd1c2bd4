package catalog

import "time"

// Product represents a catalog entry with its category and image filenames.
type Product struct {
	ID           int64     `json:"product_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Category     string    `json:"category"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// ListFilter narrows and orders a product listing.
type ListFilter struct {
	Search       string
	Category     string
	Manufacturer string
	MaxPrice     float64
	OrderBy      string // "price_asc" or "price_desc"; anything else orders by id
}

// CreateProduct is the input for Service.Create.
type CreateProduct struct {
	Title        string  `validate:"required,min=10,max=100"`
	Description  string  `validate:"required,min=10,max=500"`
	Price        float64 `validate:"required,gt=0"`
	Manufacturer string
	Category     string `validate:"required"`
}

// UpdateProduct carries the fields to change; empty fields are left as-is.
type UpdateProduct struct {
	Title        string
	Description  string
	Price        float64
	Manufacturer string
	Category     string
}
