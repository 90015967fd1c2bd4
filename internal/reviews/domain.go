package reviews

import "time"

// Review represents a product review joined with its poster and product.
type Review struct {
	ID           int64     `json:"review_id"`
	ProductID    int64     `json:"product_id"`
	ProductTitle string    `json:"product_name"`
	Title        string    `json:"review_title"`
	Text         string    `json:"text"`
	Rating       int       `json:"rating"`
	Poster       string    `json:"poster"`
	CreatedAt    time.Time `json:"-"`
}

// ProductReview is the trimmed form embedded in a product detail response.
type ProductReview struct {
	Title  string `json:"review_title"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
	Poster string `json:"poster"`
}

// CreateReview is the input for Service.Create.
type CreateReview struct {
	Title     string `validate:"required,min=5,max=100"`
	Text      string `validate:"required,min=5,max=500"`
	Rating    int    `validate:"required,min=1,max=5"`
	UserID    int64
	ProductID int64 `validate:"required"`
}

// UpdateReview carries the fields to change; zero fields are left as-is.
type UpdateReview struct {
	Title  string
	Text   string
	Rating int
}
