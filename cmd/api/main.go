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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/avolkov/go_market/internal/cart"
	"github.com/avolkov/go_market/internal/catalog"
	"github.com/avolkov/go_market/internal/config"
	"github.com/avolkov/go_market/internal/directory"
	"github.com/avolkov/go_market/internal/events"
	"github.com/avolkov/go_market/internal/httpx"
	"github.com/avolkov/go_market/internal/inventory"
	"github.com/avolkov/go_market/internal/order"
	"github.com/avolkov/go_market/internal/payment"
	"github.com/avolkov/go_market/internal/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	ctx := context.Background()

	// Catalog and directory share the sqlite file; the catalog migration set
	// creates both table groups.
	catalogRepo, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		log.Fatalw("failed to open catalog database", "error", err)
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.Migrations.CatalogDir); err != nil {
		log.Fatalw("failed to run catalog migrations", "error", err)
	}

	dirRepo, err := directory.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		log.Fatalw("failed to open directory database", "error", err)
	}
	defer dirRepo.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}

	ledger := inventory.NewRedisLedger(redisClient, log)
	cartCache := cart.NewRedisCache(redisClient)

	cartRepo, err := cart.NewMongoRepository(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatalw("failed to connect to mongodb", "error", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cartRepo.Close(closeCtx); err != nil {
			log.Errorw("error closing cart repository", "error", err)
		}
	}()

	cartSvc := cart.NewService(cartRepo, cartCache, catalogRepo, ledger, log)

	creds := &order.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Migrations.PostgresDir,
	}
	orderRepo, err := order.NewPostgresRepository(creds)
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(creds); err != nil {
		log.Fatalw("failed to run postgres migrations", "error", err)
	}

	orderSvc := order.NewService(orderRepo, dirRepo, ledger, log)

	// Payments and splits live in the same database; reuse the order pool.
	payRepo := payment.NewPostgresRepositoryFromDB(orderRepo.DB())
	settleRepo := settlement.NewPostgresRepositoryFromDB(orderRepo.DB())

	publisher := events.NewPublisher(log, cfg.Kafka.Brokers...)
	defer publisher.Close()

	settleSvc := settlement.NewService(settleRepo, payRepo, dirRepo, log)

	sandbox := payment.NewSandboxGateway([]byte(cfg.Payment.CallbackSecret), nil)
	gateway := payment.NewBreakerGateway(sandbox, log)
	fraud := payment.NewFraudChecker(payRepo, log)
	paySvc := payment.NewService(payRepo, gateway, orderSvc, settleSvc, publisher, fraud, log)

	consumer := events.NewNotificationConsumer(dirRepo, events.NewLogMailer(log), log, cfg.Kafka.Brokers...)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go consumer.Run(consumerCtx)

	handlers := httpx.Handlers{
		Cart:       httpx.NewCartHandler(cartSvc, log),
		Checkout:   httpx.NewCheckoutHandler(cartSvc, orderSvc, publisher, paySvc, log),
		Order:      httpx.NewOrderHandler(orderSvc, log),
		Payment:    httpx.NewPaymentHandler(paySvc, log),
		Settlement: httpx.NewSettlementHandler(settleSvc, log),
	}
	router := httpx.NewRouter(handlers, log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("api server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopConsumer()
	consumer.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
