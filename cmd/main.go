/**
 * @description
 * Entry point for the AllRails API server. It loads configuration, connects to
 * PostgreSQL, bootstraps the schema, starts the outbox dispatcher and the cron
 * scheduler, and serves the HTTP API until SIGINT/SIGTERM.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and pool.
 * - github.com/redis/go-redis/v9: optional shared rate limiting for public pages.
 * - github.com/joho/godotenv: local .env loading.
 * - pkg/rabbitmq: event publishing; falls back to logging when no broker is configured.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/DanstheMan1981/allrails/internal/api"
	"github.com/DanstheMan1981/allrails/internal/app"
	"github.com/DanstheMan1981/allrails/internal/config"
	"github.com/DanstheMan1981/allrails/internal/store"
	"github.com/DanstheMan1981/allrails/pkg/middleware"
	"github.com/DanstheMan1981/allrails/pkg/rabbitmq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching so the pool works behind PgBouncer.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := store.EnsureSchema(ctx, dbpool); err != nil {
		logger.Error("failed to bootstrap schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	repository := store.NewPostgresRepository(dbpool, cfg.EventsExchange)

	dispatcher := app.NewOutboxDispatcher(repository, publisherFactory(cfg, logger), logger)
	dispatcherDone := dispatcher.Start(ctx)

	scheduler := app.NewScheduler(app.NewJobs(repository, time.Duration(cfg.OutboxRetentionHours)*time.Hour, logger), logger, cfg.OutboxPurgeSchedule)
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	limiter, closeLimiter := publicLimiter(ctx, cfg, logger)
	defer closeLimiter()

	handlers := api.NewHandlers(app.NewService(repository, logger), app.NewPublicPageService(repository), logger)
	router := api.NewRouter(handlers, api.RouterConfig{
		Auth: middleware.NewAuthenticator(middleware.AuthConfig{
			Secret:              cfg.JWTSecret,
			ExpectedIssuer:      cfg.JWTIssuer,
			ExpectedAudience:    cfg.JWTAudience,
			AllowHeaderFallback: cfg.AuthAllowHeaderFallback,
		}),
		PublicLimiter:  limiter,
		AllowedOrigins: cfg.AllowedOrigins(),
	})
	if cfg.AuthAllowHeaderFallback {
		logger.Warn("X-User-Id header authentication is enabled; do not use this outside local development")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	<-dispatcherDone
	<-scheduler.Stop().Done()
	logger.Info("shutdown complete")
}

// publisherFactory dials RabbitMQ on demand. Without RABBITMQ_URL events are only logged.
func publisherFactory(cfg *config.Config, logger *slog.Logger) app.PublisherFactory {
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		logger.Warn("RABBITMQ_URL not set; outbox events will be logged instead of published")
		return func() (rabbitmq.Publisher, error) {
			return &rabbitmq.LogPublisher{Logger: logger}, nil
		}
	}
	logger.Info("publishing events to rabbitmq", "url", rabbitmq.MaskURL(cfg.RabbitMQURL), "exchange", cfg.EventsExchange)
	return func() (rabbitmq.Publisher, error) {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
		if err != nil {
			return nil, err
		}
		return producer, nil
	}
}

// publicLimiter prefers Redis so limits hold across instances, and falls back to
// an in-process token bucket when Redis is not configured or unreachable.
func publicLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (middleware.Limiter, func()) {
	memoryLimiter := func() (middleware.Limiter, func()) {
		limiter := middleware.NewMemoryLimiter(cfg.PublicRateLimitPerMinute)
		go limiter.RunSweeper(ctx, time.Minute)
		return limiter, func() {}
	}

	if strings.TrimSpace(cfg.RedisURL) == "" {
		logger.Info("REDIS_URL not set; using in-memory public rate limiter")
		return memoryLimiter()
	}
	options, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("failed to parse REDIS_URL; using in-memory public rate limiter", "error", err)
		return memoryLimiter()
	}

	client := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed; using in-memory public rate limiter", "error", err)
		client.Close()
		return memoryLimiter()
	}

	logger.Info("redis connected")
	limiter := middleware.NewRedisLimiter(client, cfg.RedisRateLimitPrefix, "public_page", cfg.PublicRateLimitPerMinute, time.Minute)
	return limiter, func() { client.Close() }
}
