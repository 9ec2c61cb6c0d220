package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/cart"
	"github.com/boddenberg/pos-bfa-go/internal/config"
	"github.com/boddenberg/pos-bfa-go/internal/domain"
	"github.com/boddenberg/pos-bfa-go/internal/handler"
	"github.com/boddenberg/pos-bfa-go/internal/infra/amqp"
	"github.com/boddenberg/pos-bfa-go/internal/infra/cache"
	"github.com/boddenberg/pos-bfa-go/internal/infra/client"
	"github.com/boddenberg/pos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pos-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/pos-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/pos-bfa-go/internal/port"
	"github.com/boddenberg/pos-bfa-go/internal/service"
	"github.com/boddenberg/pos-bfa-go/internal/snapshot"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_attempts", cfg.MaxAttempts),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("cart_idle_ttl", cfg.CartIdleTTL),
		zap.Duration("report_cache_ttl", cfg.ReportCacheTTL),
		zap.Bool("order_events", cfg.AMQPURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, observability.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var store port.CatalogStore
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := sqlite.Open(context.Background(), cfg.SQLitePath, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.Error(err))
		}
		defer db.Close()
		store = db
		logger.Info("using embedded SQLite store", zap.String("path", cfg.SQLitePath))

	case config.BackendAPI:
		resilienceCfg := resilience.Config{
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		cb := resilience.NewCircuitBreaker("store-api", client.IsStoreAnswer)
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		store = client.NewStoreClient(httpClient, cfg.StoreAPIURL, cb, resilienceCfg, logger)
		logger.Info("using store REST API", zap.String("store_api_url", cfg.StoreAPIURL))

	default:
		logger.Fatal("unknown STORE_BACKEND", zap.String("store_backend", cfg.StoreBackend))
	}

	// --- Order events ---
	var events port.OrderEventPublisher = amqp.Noop{}
	if cfg.AMQPURL != "" {
		pub, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Fatal("failed to connect to AMQP broker", zap.Error(err))
		}
		defer pub.Close()
		events = pub
		logger.Info("order events enabled",
			zap.String("exchange", cfg.AMQPExchange),
			zap.String("queue", cfg.AMQPQueue),
		)
	}

	// --- Services ---
	holder := snapshot.NewHolder(logger)
	posSvc := service.NewPOSService(
		store,
		holder,
		cache.New[*cart.Cart](cfg.CartIdleTTL),
		cache.New[*domain.SalesReport](cfg.ReportCacheTTL),
		events,
		metrics,
		logger,
	)

	// A store that is down at boot is not fatal: the status shows offline
	// and POST /v1/refresh retries.
	initCtx, initCancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout*time.Duration(max(cfg.MaxAttempts, 1)))
	if status, err := posSvc.Refresh(initCtx); err != nil {
		logger.Warn("initial data load failed, starting offline", zap.Error(err))
	} else {
		logger.Info("initial data loaded",
			zap.Int("products", status.ProductCount),
			zap.Int("orders", status.OrderCount),
		)
	}
	initCancel()

	// --- Router ---
	router := handler.NewRouter(posSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTPTimeout*time.Duration(max(cfg.MaxAttempts, 1)) + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
