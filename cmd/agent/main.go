package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpAdapter "github.com/sentineliq/dashboard-agent/internal/adapters/primary/http"
	mw "github.com/sentineliq/dashboard-agent/internal/adapters/primary/http/middleware"
	"github.com/sentineliq/dashboard-agent/internal/adapters/secondary/api"
	"github.com/sentineliq/dashboard-agent/internal/adapters/secondary/stream"
	"github.com/sentineliq/dashboard-agent/internal/auth"
	"github.com/sentineliq/dashboard-agent/internal/config"
	"github.com/sentineliq/dashboard-agent/internal/core/ports"
	"github.com/sentineliq/dashboard-agent/internal/core/services"
	"github.com/sentineliq/dashboard-agent/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting agent",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"backend", cfg.Backend.BaseURL,
	)

	// 3. Credentials and Backend Client
	tokenStore := auth.NewTokenStore(logger)
	if cfg.Backend.AccessToken != "" {
		tokenStore.Set(cfg.Backend.AccessToken)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize)
	}

	backend := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, tokenStore, limiter, logger)

	ctx := context.Background()
	if !tokenStore.Authenticated() && cfg.Backend.Email != "" {
		loginCtx, cancel := context.WithTimeout(ctx, cfg.Backend.RequestTimeout)
		pair, err := backend.Login(loginCtx, cfg.Backend.Email, cfg.Backend.Password)
		cancel()
		if err != nil {
			logger.Error("backend login failed", "error", err)
			os.Exit(1)
		}
		tokenStore.Set(pair.AccessToken)
		logger.Info("backend login succeeded")
	}

	// 4. Core Services
	feed := services.NewFeedService(cfg.Feed.Capacity, logger)

	// 5. Event Stream
	streamClient := stream.NewClient(stream.Config{
		URL:         cfg.Backend.StreamURL,
		Dialer:      stream.NewWebsocketDialer(),
		Credentials: tokenStore,
		Sink:        feed,
		Policy: stream.RetryPolicy{
			InitialDelay: cfg.Stream.InitialRetryDelay,
			MaxDelay:     cfg.Stream.MaxRetryDelay,
			MaxAttempts:  cfg.Stream.MaxRetryAttempts,
		},
		KeepaliveInterval: cfg.Stream.KeepaliveInterval,
		Logger:            logger,
	})

	// Backfill the feed from the REST activity endpoint before going live.
	// Events arrive newest first; replay oldest first so the feed keeps the
	// newest entry at the head.
	if cfg.Feed.BackfillLimit > 0 {
		backfillCtx, cancel := context.WithTimeout(ctx, cfg.Backend.RequestTimeout)
		events, err := backend.GetRecentEvents(backfillCtx, ports.EventFilter{Limit: cfg.Feed.BackfillLimit})
		cancel()
		if err != nil {
			logger.Warn("feed backfill failed", "error", err)
		} else {
			for i := len(events) - 1; i >= 0; i-- {
				feed.AppendEvent(events[i])
			}
			logger.Info("feed backfilled", "events", len(events))
		}
	}

	if cfg.Stream.Enabled {
		streamClient.Start()
	}

	// 6. Dependency Injection (Wiring the Hexagon)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	feedHandler := httpAdapter.NewFeedHandler(feed, streamClient, errorHandler, logger)
	dashboardHandler := httpAdapter.NewDashboardHandler(backend, errorHandler, logger)
	healthHandler := httpAdapter.NewHealthHandler(backend, streamClient, cfg.App.Version)

	opsRateLimiter := mw.NewRateLimiter(mw.DefaultRateLimiterConfig())

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(opsRateLimiter.Middleware)

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKey(cfg.Server.APIKey))

		r.Group(feedHandler.RegisterRoutes)
		r.Route("/backend", dashboardHandler.RegisterRoutes)
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("ops server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Stop the stream before the HTTP surface so no reconnect fires mid-shutdown.
	streamClient.Stop()

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("agent shutdown complete")
}
