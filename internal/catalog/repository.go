package catalog

import "context"

// Repository defines persistence operations for the catalog.
type Repository interface {
	InsertProduct(ctx context.Context, p CreateProduct) (int64, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, upd UpdateProduct) error
	// DeleteProduct removes the product together with its reviews and image
	// records, returning the image filenames so the files can be cleaned up.
	DeleteProduct(ctx context.Context, id int64) ([]string, error)
	ProductExists(ctx context.Context, id int64) (bool, error)
	AddImages(ctx context.Context, productID int64, filenames []string) error
	RemoveImages(ctx context.Context, productID int64, filenames []string) error
}
