package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/webstore/webstore/internal/platform/httpx"
	"github.com/webstore/webstore/internal/shared"
)

// ProductChecker reports whether a product exists. Implemented by the
// catalog service.
type ProductChecker interface {
	Exists(ctx context.Context, productID int64) (bool, error)
}

// Service handles review business logic.
type Service struct {
	repo     Repository
	products ProductChecker
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(repo Repository, products ProductChecker) *Service {
	return &Service{
		repo:     repo,
		products: products,
		validate: validator.New(),
	}
}

// Create validates and stores a new review. A user gets one review per
// product; a second attempt is rejected with a conflict.
func (s *Service) Create(ctx context.Context, input CreateReview) (int64, error) {
	if err := s.validate.Struct(input); err != nil {
		return 0, reviewValidationError(err)
	}

	exists, err := s.products.Exists(ctx, input.ProductID)
	if err != nil {
		return 0, fmt.Errorf("reviews: check product: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: product doesn't exist with ID %d", httpx.ErrNotFound, input.ProductID)
	}

	reviewed, err := s.repo.HasUserReviewed(ctx, input.ProductID, input.UserID)
	if err != nil {
		return 0, fmt.Errorf("reviews: check existing review: %w", err)
	}
	if reviewed {
		return 0, alreadyReviewed(input.ProductID)
	}

	id, err := s.repo.InsertReview(ctx, input)
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return 0, alreadyReviewed(input.ProductID)
		}
		return 0, fmt.Errorf("reviews: insert review: %w", err)
	}
	return id, nil
}

// Get fetches a single review.
func (s *Service) Get(ctx context.Context, id int64) (*Review, error) {
	rv, err := s.repo.GetReview(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: review with ID %d doesn't exist", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("reviews: get review: %w", err)
	}
	return rv, nil
}

// ListByProduct returns the reviews about a product.
func (s *Service) ListByProduct(ctx context.Context, productID int64) ([]ProductReview, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// Update modifies the caller's review. Admins may modify any review; a
// missing row is NotFound for them and Unauthorized for everyone else, so
// ownership is never revealed.
func (s *Service) Update(ctx context.Context, id int64, upd UpdateReview, principal *shared.Principal) error {
	if upd.Title != "" {
		if err := s.validate.Var(upd.Title, "min=5,max=100"); err != nil {
			return fmt.Errorf("%w: the length of review title must be between 5 and 100 characters long", httpx.ErrValidation)
		}
	}
	if upd.Text != "" {
		if err := s.validate.Var(upd.Text, "min=5,max=500"); err != nil {
			return fmt.Errorf("%w: the length of text must be between 5 and 500 characters long", httpx.ErrValidation)
		}
	}
	if upd.Rating != 0 {
		if upd.Rating < 1 || upd.Rating > 5 {
			return ratingInvalid()
		}
	}

	err := s.repo.UpdateReview(ctx, id, upd, principal.UserID, principal.IsAdmin())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			if principal.IsAdmin() {
				return fmt.Errorf("%w: review doesn't exist with ID %d", httpx.ErrNotFound, id)
			}
			return fmt.Errorf("%w: you are unauthorized to make changes to review with ID %d", httpx.ErrUnauthorized, id)
		}
		return fmt.Errorf("reviews: update review: %w", err)
	}
	return nil
}

// Delete removes the caller's review, or any review for admins.
func (s *Service) Delete(ctx context.Context, id int64, principal *shared.Principal) error {
	err := s.repo.DeleteReview(ctx, id, principal.UserID, principal.IsAdmin())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			if principal.IsAdmin() {
				return fmt.Errorf("%w: review doesn't exist with ID %d", httpx.ErrNotFound, id)
			}
			return fmt.Errorf("%w: you are not authorized to delete this review, or it doesn't exist", httpx.ErrUnauthorized)
		}
		return fmt.Errorf("reviews: delete review: %w", err)
	}
	return nil
}

func alreadyReviewed(productID int64) error {
	return fmt.Errorf("%w: you've already reviewed product with ID %d, please edit your existing review or delete it",
		httpx.ErrDuplicate, productID)
}

func ratingInvalid() error {
	return fmt.Errorf("%w: the rating of the review must be a valid number between 1 and 5", httpx.ErrValidation)
}

func reviewValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fe := fieldErrs[0]; fe.Field() {
		case "Title":
			if fe.Tag() == "required" {
				return fmt.Errorf("%w: review title is required", httpx.ErrValidation)
			}
			return fmt.Errorf("%w: the length of review title must be between 5 and 100 characters long", httpx.ErrValidation)
		case "Text":
			if fe.Tag() == "required" {
				return fmt.Errorf("%w: text is required", httpx.ErrValidation)
			}
			return fmt.Errorf("%w: the length of text must be between 5 and 500 characters long", httpx.ErrValidation)
		case "Rating":
			return ratingInvalid()
		case "ProductID":
			return fmt.Errorf("%w: product is required", httpx.ErrValidation)
		}
	}
	return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
}
