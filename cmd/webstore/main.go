package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/webstore/webstore/internal/accounts"
	"github.com/webstore/webstore/internal/app"
	"github.com/webstore/webstore/internal/catalog"
	"github.com/webstore/webstore/internal/observability"
	"github.com/webstore/webstore/internal/platform/cache"
	"github.com/webstore/webstore/internal/platform/db"
	"github.com/webstore/webstore/internal/reviews"
	"github.com/webstore/webstore/internal/token"
	"github.com/webstore/webstore/jobs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	metrics := observability.NewMetrics()

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer queueClient.Close()
	notifier := jobs.NewEmailNotifier(queueClient, metrics)

	signer := token.NewSigner(cfg.JWTSecret)
	hasher := accounts.NewBcryptHasher(cfg.BcryptCost)

	accountRepo := accounts.NewRepository(pool)
	accountService := accounts.NewService(accountRepo, hasher, signer, notifier, logger)
	accountHandler := accounts.NewHandler(logger, accountService)
	accountMW := accounts.Middleware{Signer: signer}

	imageStore, err := catalog.NewImageStore(cfg.UploadDir)
	if err != nil {
		return err
	}
	catalogCache := catalog.NewCache(redisClient, cfg.CacheTTL, logger)
	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, catalogCache, imageStore, logger)

	reviewRepo := reviews.NewRepository(pool)
	reviewService := reviews.NewService(reviewRepo, catalogService)
	reviewHandler := reviews.NewHandler(logger, reviewService)

	catalogHandler := catalog.NewHandler(logger, catalogService, reviewService)

	router := app.NewRouter(cfg, logger, app.RouterDeps{
		Accounts:   accountHandler,
		AccountsMW: accountMW,
		Catalog:    catalogHandler,
		Reviews:    reviewHandler,
		Metrics:    metrics,
		UploadDir:  imageStore.Dir(),
		HealthCheck: func(w http.ResponseWriter, r *http.Request) {
			if err := pool.Ping(r.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		},
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
