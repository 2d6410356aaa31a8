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

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/config"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/handlers"
	"github.com/SAP-F-2025/quiz-engine/internal/metrics"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/SAP-F-2025/quiz-engine/pkg"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := utils.NewServiceLogger(cfg.IsProduction())
	if err := run(cfg, logger); err != nil {
		logger.Error("Quiz engine stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := newRepository(cfg, logger)
	if err != nil {
		return err
	}

	cacheService, closeCache, err := newCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	publisher, transport, err := cfg.Events.CreateEventBus(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", "error", err)
		}
		if transport != nil {
			if err := transport.Close(); err != nil {
				logger.Warn("Failed to close event transport", "error", err)
			}
		}
	}()

	m := metrics.New()
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:       repo,
		Cache:      cacheService,
		CacheTTL:   cfg.CacheTTL,
		Publisher:  publisher,
		Metrics:    m,
		Logger:     logger,
		SweepBatch: cfg.AttemptSweepBatch,
	})

	var tokenParser handlers.TokenParser
	if cfg.Auth.Enabled() {
		tokenParser = handlers.NewCasdoorTokenParser(cfg.Auth)
	} else {
		logger.Warn("Casdoor is not configured, trusting X-User-ID and X-User-Role headers")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHandlerManager(serviceManager, utils.NewSlogLogger(logger)).
		SetupRoutes(router, handlers.AuthMiddleware(tokenParser), m)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Quiz engine listening", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		sweepAttempts(gctx, serviceManager.Attempt(), cfg.AttemptSweepInterval, logger)
		return nil
	})

	if transport != nil {
		listener := events.NewResultListener(transport.Subscriber, cfg.Events.ResultTopic, serviceManager.Progress(), logger)
		g.Go(func() error {
			return listener.Run(gctx)
		})
	}

	return g.Wait()
}

func newRepository(cfg *config.Config, logger *slog.Logger) (repositories.Repository, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return repositories.NewMemoryStore(), nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return postgres.NewRepository(db), nil
}

func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.CacheService, func(), error) {
	if !cfg.CacheEnabled {
		return cache.NewNoopCache(), func() {}, nil
	}

	client, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cacheLogger, err := pkg.NewCacheLogger(cfg)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	closeFn := func() {
		_ = cacheLogger.Sync()
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", "error", err)
		}
	}
	return cache.NewRedisCache(client, cacheLogger), closeFn, nil
}

// sweepAttempts periodically expires overdue attempts and grades the ones
// that were closed but never graded.
func sweepAttempts(ctx context.Context, attempts services.AttemptService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		logger.Info("Attempt sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := attempts.ExpireOverdue(ctx, time.Now().UTC())
			if err != nil {
				logger.Error("Attempt sweep failed", "error", err)
				continue
			}
			if report.Expired > 0 || report.Graded > 0 || report.Failed > 0 {
				logger.Info("Attempt sweep finished",
					"expired", report.Expired,
					"graded", report.Graded,
					"failed", report.Failed)
			}
		}
	}
}
