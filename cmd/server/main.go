package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Eymeric05/E-Perfume-sub000/internal/cart"
	"github.com/Eymeric05/E-Perfume-sub000/internal/cart/cache"
	"github.com/Eymeric05/E-Perfume-sub000/internal/cart/poller"
	"github.com/Eymeric05/E-Perfume-sub000/internal/catalog"
	"github.com/Eymeric05/E-Perfume-sub000/internal/checkout"
	"github.com/Eymeric05/E-Perfume-sub000/internal/config"
	"github.com/Eymeric05/E-Perfume-sub000/internal/httpapi"
	"github.com/Eymeric05/E-Perfume-sub000/internal/order"
	"github.com/Eymeric05/E-Perfume-sub000/internal/payment"
	"github.com/Eymeric05/E-Perfume-sub000/internal/publisher"
	"github.com/Eymeric05/E-Perfume-sub000/internal/recent"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB: carts and products.
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(ctx)
	if err := cart.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to ensure cart indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	// PostgreSQL: orders, payment sessions, outbox.
	creds := &order.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}
	orderRepo, err := order.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to Postgres at %s:%d", cfg.PostgresHost, cfg.PostgresPort)

	// Redis: cart cache and recently-viewed lists.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	cartCache := cache.NewRedisCache(redisClient)
	catalogRepo := catalog.NewMongoRepository(mongoDB)
	cartService := cart.NewService(cart.NewMongoRepository(mongoDB), cartCache, catalogRepo)

	// Outbound provider calls carry trace context.
	providerHTTPClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	cardProvider := payment.NewCardClient(cfg.CardProviderURL, cfg.StorefrontURL, cfg.StorefrontURL, providerHTTPClient)
	walletProvider := payment.NewWalletClient(cfg.WalletProviderURL, providerHTTPClient)

	checkoutService := checkout.NewService(orderRepo, catalogRepo, cardProvider, walletProvider, cfg.Pricing, logger)
	recentService := recent.NewService(redisClient)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartService, cfg.RequestTimeout),
		httpapi.NewCheckoutHandler(checkoutService, cfg.RequestTimeout),
		httpapi.NewRecentHandler(recentService, cfg.RequestTimeout),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	var wg sync.WaitGroup

	// Outbox publisher + stuck-payment recovery.
	outboxPoller := publisher.NewOutboxPoller(orderRepo, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outboxPoller.Run(ctx)
	}()

	// Cart clearing on order-paid events.
	cartPoller := poller.NewPoller(cart.NewMongoRepository(mongoDB), cartCache, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cartPoller.Run(ctx)
	}()

	// Hourly recently-viewed pruning.
	recentPruner := recent.NewPruner(redisClient, catalogRepo, recentService)
	wg.Add(1)
	go func() {
		defer wg.Done()
		recentPruner.Run(ctx)
	}()

	go func() {
		log.Printf("E-Perfume checkout service starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	cancel()
	cartPoller.Close()
	wg.Wait()
	log.Println("server exited")
}
