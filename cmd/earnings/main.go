package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"networkpay/internal/analytics"
	"networkpay/internal/earnings"
	"networkpay/internal/handler"
	"networkpay/internal/middleware"
	"networkpay/internal/monitoring"
	"networkpay/internal/repository/postgres"
	"networkpay/internal/scheduler"
	"networkpay/internal/source"
	"networkpay/pkg/cache"
	"networkpay/pkg/config"
	"networkpay/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New("earnings-service")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Earnings Service", map[string]interface{}{
		"port":   cfg.Server.Port,
		"source": cfg.Upstream.Source,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := cache.Dial(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	snapshots := cache.NewRedisCache(redisClient, cache.DefaultPrefix)
	defer snapshots.Close()

	log.Info("Redis connected", nil)

	checks := map[string]handler.Pinger{"redis": snapshots}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	var primary source.Provider
	switch cfg.Upstream.Source {
	case config.SourcePostgres:
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatal("Failed to connect to database", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		log.Info("Database connected", nil)

		checks["database"] = handler.PingFunc(db.PingContext)
		primary = source.NewPostgresProvider(postgres.NewRecordRepository(db))
	case config.SourceMock:
		primary = source.NewMockProvider()
	default:
		primary = source.NewRESTProvider(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, cfg.Upstream.PageSize)
	}

	var mock source.Provider
	if cfg.Fallback.MockEnabled && cfg.Upstream.Source != config.SourceMock {
		mock = source.NewMockProvider()
	}
	provider := source.NewFallbackProvider(primary, snapshots, mock, source.FallbackConfig{
		Timeout:     cfg.Upstream.Timeout,
		SnapshotTTL: cfg.Fallback.SnapshotTTL,
	}, log.With(map[string]interface{}{"component": "source"}), metrics)

	engine := analytics.NewEngine(analytics.EngineConfig{
		StrictUpperBound: cfg.Pipeline.StrictUpperBound,
		DefaultPageSize:  cfg.Pipeline.DefaultPageSize,
		MaxPageSize:      cfg.Pipeline.MaxPageSize,
	})
	earningsService := earnings.NewService(provider, engine, snapshots, metrics, log)

	var warmer *scheduler.Warmer
	if cfg.Warmer.Enabled {
		warmer = scheduler.NewWarmer(snapshots, provider, scheduler.WarmerConfig{
			Schedule:     cfg.Warmer.Schedule,
			ActiveWindow: cfg.Warmer.ActiveWindow,
			MaxOwners:    cfg.Warmer.MaxOwners,
		}, log.With(map[string]interface{}{"component": "warmer"}), metrics)
		if err := warmer.Start(); err != nil {
			log.Fatal("Failed to start snapshot warmer", map[string]interface{}{
				"error":    err.Error(),
				"schedule": cfg.Warmer.Schedule,
			})
		}
	}

	earningsHandler := handler.NewEarningsHandler(earningsService, log)
	systemHandler := handler.NewSystemHandler(checks, log)

	// Setup router
	r := mux.NewRouter()

	// Middleware
	r.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.Recovery(log))

	// Routes
	r.HandleFunc("/health", systemHandler.Health).Methods("GET")
	r.HandleFunc("/ready", systemHandler.Ready).Methods("GET")
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler()).Methods("GET")
	}

	// Protected routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate)
	api.Use(middleware.NewRateLimiter(redisClient, cfg.Server.RateLimit, cfg.Server.RateWindow, log).Limit)
	earningsHandler.Register(api)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("Earnings service started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down earnings service...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if warmer != nil {
		warmer.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Earnings service forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Earnings service stopped gracefully", nil)
}
