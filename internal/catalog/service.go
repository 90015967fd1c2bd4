package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/webstore/webstore/internal/platform/httpx"
	"github.com/webstore/webstore/internal/shared"
)

// Service handles catalog business logic.
type Service struct {
	repo     Repository
	cache    *Cache
	images   *ImageStore
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo Repository, cache *Cache, images *ImageStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		images:   images,
		logger:   logger,
		validate: validator.New(),
	}
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, input CreateProduct) (int64, error) {
	if err := s.validate.Struct(input); err != nil {
		return 0, productValidationError(err)
	}
	id, err := s.repo.InsertProduct(ctx, input)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, fmt.Errorf("%w: unknown category %q", httpx.ErrValidation, input.Category)
		}
		return 0, fmt.Errorf("catalog: insert product: %w", err)
	}
	s.bumpCache(ctx)
	return id, nil
}

// List returns products matching the filter, served from cache when warm.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	key, err := s.cache.BuildKey(ctx, "catalog", "list",
		filter.Search, filter.Category, filter.Manufacturer,
		strconv.FormatFloat(filter.MaxPrice, 'f', -1, 64), filter.OrderBy)
	if err != nil {
		// Cache trouble must not take the listing down.
		s.logger.Warn("build cache key", slog.Any("error", err))
		return s.repo.ListProducts(ctx, filter)
	}

	var products []Product
	err = s.cache.FetchJSON(ctx, key, &products, func(ctx context.Context) (any, error) {
		return s.repo.ListProducts(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	return products, nil
}

// Get fetches a single product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: product not found with ID %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("catalog: get product: %w", err)
	}
	return p, nil
}

// Update applies the provided fields to a product.
func (s *Service) Update(ctx context.Context, id int64, upd UpdateProduct) error {
	if upd.Title != "" {
		if err := s.validate.Var(upd.Title, "min=10,max=100"); err != nil {
			return fmt.Errorf("%w: the length of title must be between 10 and 100 characters long", httpx.ErrValidation)
		}
	}
	if upd.Description != "" {
		if err := s.validate.Var(upd.Description, "min=10,max=500"); err != nil {
			return fmt.Errorf("%w: the length of description must be between 10 and 500 characters long", httpx.ErrValidation)
		}
	}
	if upd.Price < 0 {
		return fmt.Errorf("%w: the price of the product must be a valid number, bigger than 0", httpx.ErrValidation)
	}
	if err := s.repo.UpdateProduct(ctx, id, upd); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: product not found with ID %d", httpx.ErrNotFound, id)
		}
		return fmt.Errorf("catalog: update product: %w", err)
	}
	s.bumpCache(ctx)
	return nil
}

// Delete removes a product along with its reviews, image records and files.
func (s *Service) Delete(ctx context.Context, id int64) error {
	filenames, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: product doesn't exist with ID %d", httpx.ErrNotFound, id)
		}
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if s.images != nil {
		if err := s.images.Remove(filenames); err != nil {
			s.logger.Warn("remove image files", slog.Any("error", err))
		}
	}
	s.bumpCache(ctx)
	return nil
}

// AttachImages stores the uploaded files and records the survivors.
func (s *Service) AttachImages(ctx context.Context, productID int64, files []*multipart.FileHeader) (UploadResult, error) {
	if len(files) > MaxImagesPerUpload {
		return UploadResult{}, fmt.Errorf("%w: you are limited to uploading a maximum of %d files in each upload",
			httpx.ErrValidation, MaxImagesPerUpload)
	}
	if s.images == nil || len(files) == 0 {
		return UploadResult{}, nil
	}
	result := s.images.SaveAll(productID, files)
	if len(result.Saved) > 0 {
		if err := s.repo.AddImages(ctx, productID, result.Saved); err != nil {
			return result, fmt.Errorf("catalog: record images: %w", err)
		}
		s.bumpCache(ctx)
	}
	return result, nil
}

// DetachImages removes the named images from the product and from disk.
func (s *Service) DetachImages(ctx context.Context, productID int64, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}
	if err := s.repo.RemoveImages(ctx, productID, filenames); err != nil {
		return fmt.Errorf("catalog: remove images: %w", err)
	}
	if s.images != nil {
		if err := s.images.Remove(filenames); err != nil {
			s.logger.Warn("remove image files", slog.Any("error", err))
		}
	}
	s.bumpCache(ctx)
	return nil
}

// Exists reports whether a product exists; used by the reviews module.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.ProductExists(ctx, id)
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump catalog cache", slog.Any("error", err))
	}
}

func productValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fe := fieldErrs[0]; fe.Field() {
		case "Title":
			if fe.Tag() == "required" {
				return fmt.Errorf("%w: title is required", httpx.ErrValidation)
			}
			return fmt.Errorf("%w: the length of title must be between 10 and 100 characters long", httpx.ErrValidation)
		case "Description":
			if fe.Tag() == "required" {
				return fmt.Errorf("%w: description is required", httpx.ErrValidation)
			}
			return fmt.Errorf("%w: the length of description must be between 10 and 500 characters long", httpx.ErrValidation)
		case "Price":
			return fmt.Errorf("%w: the price of the product must be a valid number, bigger than 0", httpx.ErrValidation)
		case "Category":
			return fmt.Errorf("%w: category is required", httpx.ErrValidation)
		}
	}
	return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
}
