package app

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/webstore/webstore/internal/accounts"
	"github.com/webstore/webstore/internal/catalog"
	"github.com/webstore/webstore/internal/observability"
	"github.com/webstore/webstore/internal/reviews"
)

// RouterDeps bundles the handlers mounted by NewRouter.
type RouterDeps struct {
	Accounts    *accounts.Handler
	AccountsMW  accounts.Middleware
	Catalog     *catalog.Handler
	Reviews     *reviews.Handler
	Metrics     *observability.Metrics
	UploadDir   string
	HealthCheck func(w http.ResponseWriter, r *http.Request)
}

// NewRouter assembles the HTTP router with middleware and all routes.
func NewRouter(cfg *Config, logger *slog.Logger, deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	var metricsMW func(http.Handler) http.Handler
	if deps.Metrics != nil {
		metricsMW = deps.Metrics.Middleware
	}
	applyMiddleware(r, cfg, logger, metricsMW)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", deps.Accounts.MountRoutes)
		api.Route("/products", func(pr chi.Router) {
			deps.Catalog.MountRoutes(pr, deps.AccountsMW.Authenticate, accounts.RequireAdmin)
		})
		api.Route("/reviews", func(rr chi.Router) {
			deps.Reviews.MountRoutes(rr, deps.AccountsMW.Authenticate)
		})
		api.Route("/users", func(ur chi.Router) {
			ur.Use(deps.AccountsMW.Authenticate)
			ur.Use(accounts.RequireAdmin)
			deps.Accounts.MountAdminRoutes(ur)
		})
	})

	if deps.UploadDir != "" {
		fileServer := http.FileServer(http.Dir(filepath.Clean(deps.UploadDir)))
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))
	}

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	healthCheck := deps.HealthCheck
	if healthCheck == nil {
		healthCheck = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}
	}
	r.Get("/healthz", healthCheck)

	return r
}
