package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/farmlink/farmlink-backend/api/controllers"
	"github.com/farmlink/farmlink-backend/api/routes"
	"github.com/farmlink/farmlink-backend/internal/auth"
	"github.com/farmlink/farmlink-backend/internal/cart"
	"github.com/farmlink/farmlink-backend/internal/catalog"
	"github.com/farmlink/farmlink-backend/internal/deliveries"
	"github.com/farmlink/farmlink-backend/internal/ledger"
	"github.com/farmlink/farmlink-backend/internal/orders"
	"github.com/farmlink/farmlink-backend/internal/users"
	"github.com/farmlink/farmlink-backend/pkg/auth/session"
	"github.com/farmlink/farmlink-backend/pkg/config"
	"github.com/farmlink/farmlink-backend/pkg/db"
	"github.com/farmlink/farmlink-backend/pkg/instance"
	"github.com/farmlink/farmlink-backend/pkg/logger"
	"github.com/farmlink/farmlink-backend/pkg/metrics"
	"github.com/farmlink/farmlink-backend/pkg/migrate"
	"github.com/farmlink/farmlink-backend/pkg/outbox"
	"github.com/farmlink/farmlink-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	params, err := buildRouterParams(cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.ID(),
		"addr":     addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}
}

func buildRouterParams(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, registry *prometheus.Registry) (routes.Params, error) {
	conn := dbClient.DB()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Params{}, err
	}

	userRepo := users.NewRepository(conn)
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Params{}, err
	}

	catalogRepo := catalog.NewRepository(conn)
	catalogService, err := catalog.NewService(catalogRepo, cfg.Orders.CatalogLowStock)
	if err != nil {
		return routes.Params{}, err
	}

	cartService, err := cart.NewService(cart.NewRepository(conn), dbClient, catalogRepo, logg)
	if err != nil {
		return routes.Params{}, err
	}

	events := outbox.NewService(outbox.NewRepository(conn), logg)

	deliveryService, err := deliveries.NewService(deliveries.NewRepository(conn), userRepo, dbClient, events)
	if err != nil {
		return routes.Params{}, err
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return routes.Params{}, err
	}

	stock, err := catalog.NewStockAdjuster(catalog.StockAdjusterParams{
		Repository:    catalogRepo,
		Logger:        logg,
		Metrics:       metrics.NewStockMetrics(registry),
		LowStock:      cfg.Orders.OrderLowStockThreshold,
		RetryAttempts: cfg.Orders.StockRetryAttempts,
	})
	if err != nil {
		return routes.Params{}, err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repository:  orders.NewRepository(conn),
		TxRunner:    dbClient,
		Catalog:     catalogRepo,
		Stock:       stock,
		Deliveries:  deliveryService,
		Ledger:      ledgerService,
		Cart:        cartService,
		Outbox:      events,
		Logger:      logg,
		DeliveryFee: cfg.Orders.DeliveryFeeAmount(),
	})
	if err != nil {
		return routes.Params{}, err
	}

	return routes.Params{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessionManager,
		Idempotency: redisClient,
		RateLimiter: redisClient,
		Readiness: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Gatherer:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		Auth:        authService,
		Cart:        cartService,
		Orders:      ordersService,
		Catalog:     catalogService,
		Deliveries:  deliveryService,
	}, nil
}
