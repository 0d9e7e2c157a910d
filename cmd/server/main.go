package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/config"
	"github.com/FeruzyNtillah/my-e-commerce/internal/auth"
	"github.com/FeruzyNtillah/my-e-commerce/internal/cart"
	"github.com/FeruzyNtillah/my-e-commerce/internal/delivery"
	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/metrics"
	"github.com/FeruzyNtillah/my-e-commerce/internal/payment"
	"github.com/FeruzyNtillah/my-e-commerce/internal/repository/memory"
	"github.com/FeruzyNtillah/my-e-commerce/internal/repository/mongodb"
	"github.com/FeruzyNtillah/my-e-commerce/internal/repository/postgres"
	"github.com/FeruzyNtillah/my-e-commerce/internal/usecase"
	"github.com/FeruzyNtillah/my-e-commerce/pkg/db"

	"github.com/sirupsen/logrus"
)

type repositories struct {
	products domain.ProductRepository
	orders   domain.OrderRepository
	users    domain.UserRepository
	close    func(context.Context) error
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*repositories, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, cfg.OTELServiceName, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, sqlDB, logger); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return &repositories{
			products: postgres.NewProductRepository(sqlDB, logger),
			orders:   postgres.NewOrderRepository(sqlDB, logger),
			users:    postgres.NewUserRepository(sqlDB, logger),
			close:    func(context.Context) error { return sqlDB.Close() },
		}, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return &repositories{
			products: memory.NewProductRepository(logger),
			orders:   memory.NewOrderRepository(logger),
			users:    memory.NewUserRepository(logger),
			close:    func(context.Context) error { return nil },
		}, nil

	default:
		client, database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, database, logger); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &repositories{
			products: mongodb.NewProductRepository(database, logger),
			orders:   mongodb.NewOrderRepository(database, logger),
			users:    mongodb.NewUserRepository(database, logger),
			close:    client.Disconnect,
		}, nil
	}
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig(logger)
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	logger.Info("Starting storefront API...")

	ctx := context.Background()
	appMetrics, shutdownMetrics, err := metrics.InitMetrics(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Errorf("Error shutting down meter provider: %v", err)
		}
	}()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.StorageDriver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repos.close(closeCtx); err != nil {
			logger.Errorf("Error closing storage: %v", err)
		}
	}()
	logger.Infof("Storage ready (driver=%s)", cfg.StorageDriver)

	stockUseCase := usecase.NewStockUseCase(repos.products, appMetrics, logger)
	orderUseCase := usecase.NewOrderUseCase(repos.orders, repos.products, stockUseCase, usecase.OrderOptions{
		Pricing:      cart.NewPolicy(cfg.TaxRate, cfg.FreeShippingThreshold, cfg.FlatShippingPrice),
		VerifyTotals: cfg.VerifyOrderTotals,
	}, appMetrics, logger)
	userUseCase := usecase.NewUserUseCase(repos.users, auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire), auth.NewBcryptHasher(0), logger)
	paymentUseCase := usecase.NewPaymentUseCase(orderUseCase, repos.users,
		payment.NewSimulator(cfg.PaymentDelay, cfg.PaymentSuccessRate), cfg.PaymentTimeout, appMetrics, logger)

	if cfg.AdminEmail != "" {
		if _, err := userUseCase.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Fatalf("Failed to provision admin account %s: %v", cfg.AdminEmail, err)
		}
	}

	router := delivery.NewRouter(cfg, delivery.Services{
		Users:    userUseCase,
		Products: usecase.NewProductUseCase(repos.products, logger),
		Reviews:  usecase.NewReviewUseCase(repos.products, repos.users, appMetrics, logger),
		Orders:   orderUseCase,
		Payments: paymentUseCase,
	}, appMetrics, logger)

	// mobile payments hold the request open for the provider delay
	server := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.PaymentTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Storefront API listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server exited")
}
