package reviews

import "context"

// Repository defines persistence operations for reviews.
//
// UpdateReview and DeleteReview enforce ownership in the SQL predicate:
// unless admin is set, only rows owned by userID match, so a non-owner
// observes shared.ErrNotFound without a separate lookup.
type Repository interface {
	InsertReview(ctx context.Context, rv CreateReview) (int64, error)
	GetReview(ctx context.Context, id int64) (*Review, error)
	ListByProduct(ctx context.Context, productID int64) ([]ProductReview, error)
	UpdateReview(ctx context.Context, id int64, upd UpdateReview, userID int64, admin bool) error
	DeleteReview(ctx context.Context, id, userID int64, admin bool) error
	HasUserReviewed(ctx context.Context, productID, userID int64) (bool, error)
}
