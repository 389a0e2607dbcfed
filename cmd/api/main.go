package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/reprocare/reprocare/internal/api/router"
	appconfig "github.com/reprocare/reprocare/internal/config"
	"github.com/reprocare/reprocare/internal/llm"
	"github.com/reprocare/reprocare/internal/observability/metrics"
	"github.com/reprocare/reprocare/internal/rooms"
	"github.com/reprocare/reprocare/internal/visit"
	"github.com/reprocare/reprocare/pkg/logging"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting reprocare API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
	)

	store, cleanup, err := newStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize visit store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var primary llm.Client
	if cfg.LLMAPIKey != "" {
		primary = llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.LLMTimeout,
		})
	} else {
		logger.Info("no LLM credential configured, completions served by the offline stub")
	}
	text := llm.NewFallbackClient(primary, logger.Named("llm"))

	provisioner := rooms.NewWherebyClient(rooms.Config{
		APIKey:         cfg.WherebyAPIKey,
		RoomTemplateID: cfg.WherebyRoomTemplateID,
		RoomURLBase:    cfg.RoomURLBase,
		Timeout:        cfg.WherebyTimeout,
		Logger:         logger.Named("rooms"),
	})

	registry := prometheus.NewRegistry()
	visitMetrics := metrics.NewVisitMetrics(registry)

	service := visit.NewService(store, text, provisioner, logger.Named("visit"), visitMetrics)
	handler := visit.NewHandler(service, logger.Named("http"))

	r := router.New(&router.Config{
		Logger:             logger,
		VisitHandler:       handler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newStore selects the visit store backend. The returned cleanup closes
// whatever connection the backend holds.
func newStore(cfg *appconfig.Config, logger *logging.Logger) (visit.Store, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, func() {}, err
		}
		logger.Info("using redis visit store", "addr", cfg.RedisAddr)
		return visit.NewRedisStore(client), func() { _ = client.Close() }, nil

	case "postgres":
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, func() {}, err
		}
		logger.Info("using postgres visit store")
		return visit.NewPostgresStore(db), func() { _ = db.Close() }, nil

	default:
		logger.Info("using in-memory visit store")
		return visit.NewMemoryStore(), func() {}, nil
	}
}
