package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/webstore/webstore/internal/platform/httpx"
	"github.com/webstore/webstore/internal/reviews"
)

// ReviewSource supplies the reviews embedded in a product detail response.
// Implemented by the reviews service.
type ReviewSource interface {
	ListByProduct(ctx context.Context, productID int64) ([]reviews.ProductReview, error)
}

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger  *slog.Logger
	service *Service
	reviews ReviewSource
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, reviews ReviewSource) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, reviews: reviews}
}

// MountRoutes registers catalog routes. Reading is public; writes run
// behind the provided authentication and admin middlewares.
func (h *Handler) MountRoutes(r chi.Router, authenticate, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(authenticate, requireAdmin)
		r.Post("/", h.handleCreate)
		r.Patch("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

// multipartMemoryLimit bounds in-memory buffering of uploads; five images
// of 1 MB each fit comfortably.
const multipartMemoryLimit = 8 << 20

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "expected multipart form data")
		return
	}
	price, _ := strconv.ParseFloat(r.PostFormValue("price"), 64)
	input := CreateProduct{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		Price:        price,
		Manufacturer: r.PostFormValue("manufacturer"),
		Category:     r.PostFormValue("category"),
	}

	id, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	upload, err := h.service.AttachImages(r.Context(), id, r.MultipartForm.File["images"])
	if err != nil {
		h.logger.Warn("attach images", slog.Int64("product_id", id), slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"msg":           "Product created successfully with ID " + strconv.FormatInt(id, 10) + ".",
		"imageHandling": upload,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	maxPrice, _ := strconv.ParseFloat(r.URL.Query().Get("price"), 64)
	filter := ListFilter{
		Search:       r.URL.Query().Get("search"),
		Category:     r.URL.Query().Get("category"),
		Manufacturer: r.URL.Query().Get("manufacturer"),
		MaxPrice:     maxPrice,
		OrderBy:      r.URL.Query().Get("order_by"),
	}
	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	productReviews, err := h.reviews.ListByProduct(r.Context(), id)
	if err != nil {
		h.logger.Error("list product reviews", slog.Int64("product_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if productReviews == nil {
		productReviews = []reviews.ProductReview{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product": product,
		"reviews": productReviews,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "expected multipart form data")
		return
	}
	price, _ := strconv.ParseFloat(r.PostFormValue("price"), 64)
	upd := UpdateProduct{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		Price:        price,
		Manufacturer: r.PostFormValue("manufacturer"),
		Category:     r.PostFormValue("category"),
	}
	if err := h.service.Update(r.Context(), id, upd); err != nil {
		httpx.RespondError(w, err)
		return
	}

	if remove := r.PostForm["imagesToRemove"]; len(remove) > 0 {
		if err := h.service.DetachImages(r.Context(), id, remove); err != nil {
			h.logger.Warn("detach images", slog.Int64("product_id", id), slog.Any("error", err))
		}
	}
	upload, err := h.service.AttachImages(r.Context(), id, r.MultipartForm.File["imagesToAdd"])
	if err != nil {
		h.logger.Warn("attach images", slog.Int64("product_id", id), slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"msg":           "Product successfully updated with ID " + strconv.FormatInt(id, 10) + ".",
		"imageHandling": upload,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"msg": "Product with ID " + strconv.FormatInt(id, 10) + " along with its reviews and images was successfully deleted.",
	})
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
