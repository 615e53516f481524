package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dylanleonard80/peptidefoundry/internal/cart"
	"github.com/dylanleonard80/peptidefoundry/internal/catalog"
	"github.com/dylanleonard80/peptidefoundry/internal/checkout"
	"github.com/dylanleonard80/peptidefoundry/internal/config"
	"github.com/dylanleonard80/peptidefoundry/internal/events"
	"github.com/dylanleonard80/peptidefoundry/internal/httpapi"
	"github.com/dylanleonard80/peptidefoundry/internal/logging"
	"github.com/dylanleonard80/peptidefoundry/internal/membership"
	"github.com/dylanleonard80/peptidefoundry/internal/orders"
	"github.com/dylanleonard80/peptidefoundry/internal/payment"
	"github.com/dylanleonard80/peptidefoundry/internal/postgres"
	"github.com/dylanleonard80/peptidefoundry/internal/pricing"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(os.Getenv("APP_ENV") != "production")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	creds := &postgres.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	db, err := postgres.Connect(creds)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.RunMigrations(db, creds); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = mongoDB.Client().Disconnect(disconnectCtx)
	}()
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = cart.EnsureIndexes(ctx, mongoDB)
	cancel()
	if err != nil {
		logger.Fatal("failed to ensure cart indexes", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	calc := pricing.NewCalculator(cfg.MemberFallbackDiscount, cfg.FreeShippingThreshold, cfg.FlatShippingRate)

	catalogRepo := catalog.NewRepository(db)
	gate := catalog.NewGate(catalogRepo)
	reconciler := pricing.NewReconciler(catalogRepo, calc, logger)

	cartStore := cart.NewStore(
		cart.NewMongoRepository(mongoDB),
		cart.NewRedisCache(redisClient),
		gate,
		calc,
		logger,
	)

	memberRepo := membership.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	var provider payment.Provider
	if cfg.PaymentBaseURL != "" {
		provider = payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentClientID, cfg.PaymentClientSecret, logger)
	} else {
		logger.Warn("no payment provider configured, using sandbox")
		provider = payment.NewSandbox()
	}

	checkoutSvc := checkout.NewService(
		cartStore,
		gate,
		reconciler,
		calc,
		memberRepo,
		provider,
		orderRepo,
		memberRepo,
		cfg.MembershipPrice,
		logger,
	)

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()
	poller := events.NewOutboxPoller(orderRepo, logger, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartStore, catalogRepo, calc, memberRepo, cfg.RequestTimeout, logger),
		httpapi.NewCheckoutHandler(checkoutSvc, cfg.RequestTimeout, logger),
		httpapi.NewOrdersHandler(orderRepo, memberRepo, cfg.RequestTimeout, logger),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	pollerCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
