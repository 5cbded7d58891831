// Package main is the entry point for the Pulse API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/pulse/internal/api"
	"github.com/onnwee/pulse/internal/config"
	"github.com/onnwee/pulse/internal/feed"
	"github.com/onnwee/pulse/internal/feedback"
	"github.com/onnwee/pulse/internal/health"
	"github.com/onnwee/pulse/internal/idempotency"
	"github.com/onnwee/pulse/internal/middleware"
	"github.com/onnwee/pulse/internal/profile"
	"github.com/onnwee/pulse/internal/recommend"
	"github.com/onnwee/pulse/internal/snapshot"
	"github.com/onnwee/pulse/internal/tracing"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Pulse Ranking & Recommendation API")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// One registry shared by every component.
	registry := prometheus.NewRegistry()

	httpMetrics := middleware.NewMetrics()
	feedMetrics := feed.NewMetrics()
	recommendMetrics := recommend.NewMetrics()
	snapshotMetrics := snapshot.NewMetrics()
	feedbackMetrics := feedback.NewMetrics()
	profileMetrics := profile.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register,
		feedMetrics.Register,
		recommendMetrics.Register,
		snapshotMetrics.Register,
		feedbackMetrics.Register,
		profileMetrics.Register,
	} {
		if err := register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	if cfg.TracingEnabled {
		provider, err := tracing.NewProvider(tracing.Config{
			ServiceName:  "pulse-api",
			Enabled:      true,
			Environment:  cfg.Env,
			ExporterType: "otlp-http",
			OTLPEndpoint: cfg.OTLPEndpoint,
			SamplingRate: 0.1,
			InsecureMode: cfg.Env != "production",
		})
		if err != nil {
			logger.Error("failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(ctx); err != nil {
				logger.Error("tracing shutdown failed", "error", err)
			}
		}()
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Redis is optional. Profile caching and distributed rate limiting
	// fall back to in-process behavior without it.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	// Social-graph snapshot: one immediate build, then periodic refresh.
	followSource := snapshot.NewPostgresFollowSource(db, logger)
	snapshotManager := snapshot.NewManager(followSource)
	refreshJob := snapshot.NewRefreshJob(snapshot.RefreshJobConfig{
		Interval: time.Duration(cfg.SnapshotRefreshSeconds) * time.Second,
		Timeout:  time.Duration(cfg.SnapshotTimeoutSeconds) * time.Second,
		Logger:   logger,
		Metrics:  snapshotMetrics,
	}, snapshotManager)
	if err := refreshJob.Start(context.Background()); err != nil {
		// A failed first build is not fatal. The server comes up not-ready
		// and the job keeps retrying on its interval.
		logger.Warn("initial snapshot build failed, serving not-ready until next refresh", "error", err)
	}
	defer refreshJob.Stop()

	var profiles profile.Source = profile.NewPostgresSource(db, logger)
	if redisClient != nil {
		profiles = profile.NewCachedSource(profiles, profile.NewRedisCache(redisClient), profile.DefaultCacheTTL, profileMetrics, logger)
	}

	weights, err := feed.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		// LoadCalibration falls back to defaults on failure.
		logger.Warn("using default ranking weights", "error", err)
	}

	feedService := feed.NewService(feed.NewPostgresSource(db, logger), weights, feedMetrics, logger)

	directory := recommend.NewPostgresDirectory(db, logger)
	recommendService := recommend.NewService(snapshotManager, profiles, directory, directory, recommend.DefaultTunables(), recommendMetrics, logger)

	// Engagement ingestion: bounded async queue draining into Postgres rollups.
	feedbackSink := feedback.NewAsyncSink(feedback.AsyncSinkConfig{
		QueueSize: cfg.FeedbackQueueSize,
		Logger:    logger,
		Metrics:   feedbackMetrics,
	}, feedback.NewPostgresRollup(db, logger))
	if !feedbackSink.Start(context.Background()) {
		logger.Error("failed to start feedback sink")
		os.Exit(1)
	}
	defer feedbackSink.Stop()

	// Replay suppression for engagement submissions. Redis-backed when
	// available so a retried request landing on another replica is still
	// deduplicated.
	var dedupe idempotency.Repository
	if redisClient != nil {
		dedupe = idempotency.NewRedisRepository(redisClient, idempotency.DefaultExpiry)
	} else {
		memRepo := idempotency.NewInMemoryRepository()
		cleanupCtx, stopCleanup := context.WithCancel(context.Background())
		go idempotency.RunPeriodicCleanup(cleanupCtx, memRepo, time.Hour, idempotency.DefaultExpiry)
		defer stopCleanup()
		dedupe = memRepo
	}

	feedHandlers := api.NewFeedHandlers(feedService, profiles, logger)
	recommendHandlers := api.NewRecommendHandlers(recommendService, snapshotManager, logger)
	feedbackHandlers := api.NewFeedbackHandlers(feedbackSink, dedupe, logger)

	healthConfig := api.HealthHandlersConfig{
		DBChecker:     health.NewDBChecker(db),
		SnapshotReady: snapshotManager.Ready,
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/feed", feedHandlers.GetFeed)
	mux.HandleFunc("/v1/recommendations", recommendHandlers.GetRecommendations)
	mux.HandleFunc("/v1/feedback", feedbackHandlers.PostFeedback)
	mux.HandleFunc("/v1/users/", recommendHandlers.GetSimilarUsers)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"pulse-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Redis-backed limits hold across replicas; the in-memory store is a
	// single-instance fallback.
	var rateLimitStore middleware.RateLimitStore
	if redisClient != nil {
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient, httpMetrics)
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
		rateLimitStore = memStore
	}

	// Middleware chain, applied innermost first.
	var handler http.Handler = mux
	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.UserKeyFunc())(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing("pulse-api")(handler)
	}
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		MaxAge:           3600,
	})(handler)
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.Env == "development",
		Environment: cfg.Env,
	})(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
