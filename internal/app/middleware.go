package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

const (
	rateLimitRequests = 40
	rateLimitWindow   = 5 * time.Minute
)

// applyMiddleware installs the shared middleware stack on the router.
func applyMiddleware(r chi.Router, cfg *Config, logger *slog.Logger, metricsMiddleware func(http.Handler) http.Handler) {
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.AppRequestTimeout))
	r.Use(middleware.Compress(5))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'",
		IsDevelopment:         !cfg.IsProduction(),
	})
	r.Use(secureMiddleware.Handler)

	// The limiter keeps per-IP state that leaks across unit tests.
	if !InTestMode() {
		r.Use(httprate.Limit(
			rateLimitRequests,
			rateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
	}

	if metricsMiddleware != nil {
		r.Use(metricsMiddleware)
	}
}

// requestLogger logs every request with method, path, status and latency.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
