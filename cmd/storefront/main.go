package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/electromart/internal/cart/cache"
	cartpoller "github.com/fjod/electromart/internal/cart/poller"
	cartservice "github.com/fjod/electromart/internal/cart/service"
	"github.com/fjod/electromart/internal/checkout/publisher"
	checkoutrepo "github.com/fjod/electromart/internal/checkout/repository"
	checkoutservice "github.com/fjod/electromart/internal/checkout/service"
	"github.com/fjod/electromart/internal/config"
	"github.com/fjod/electromart/internal/events"
	h "github.com/fjod/electromart/internal/http"
	ordersrepo "github.com/fjod/electromart/internal/orders/repository"
	ordersservice "github.com/fjod/electromart/internal/orders/service"
	"github.com/fjod/electromart/internal/payment/gateway"
	"github.com/fjod/electromart/internal/payment/razorpay"
	"github.com/fjod/electromart/internal/payment/signature"
	productrepo "github.com/fjod/electromart/internal/product/repository"
	productservice "github.com/fjod/electromart/internal/product/service"
	"github.com/fjod/electromart/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	if err := run(); err != nil {
		logger.Default.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(os.Stdout, cfg.LogLevel)
	logger.Default = log
	// continue traces started by the caller; spans carry into log records
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("storefront starting", "env", cfg.Env, "port", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catalog
	products, err := productrepo.NewRepository(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer products.Close()
	if err := products.RunMigrations(); err != nil {
		return fmt.Errorf("catalog migrations: %w", err)
	}
	productService := productservice.NewProductService(products)

	// Session carts
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	cartService := cartservice.NewCartService(cache.NewRedisCache(redisClient, cfg.CartTTL), productService)

	// Orders
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	mongoDB, err := ordersrepo.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer func() {
		if err := ordersrepo.Disconnect(mongoDB, 5*time.Second); err != nil {
			log.Error("mongo disconnect failed", "error", err)
		}
	}()
	orderRepo := ordersrepo.NewMongoRepository(mongoDB)
	if err := orderRepo.CreateIndexes(connectCtx); err != nil {
		return err
	}

	writer := events.NewWriter(cfg.OrderTopic, cfg.KafkaBrokers...)
	defer writer.Close()
	orderService := ordersservice.NewOrderService(orderRepo, writer)

	// Payment gateway
	rzp := razorpay.NewClient(razorpay.Config{
		BaseURL:   cfg.RazorpayBaseURL,
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Timeout:   cfg.GatewayTimeout,
		Logger:    log,
	})
	gw := gateway.NewDirect(rzp, cfg.RazorpayKeySecret)

	// Checkout ledger
	creds := &checkoutrepo.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	checkouts, err := checkoutrepo.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("connect to checkout database: %w", err)
	}
	defer checkouts.Close()
	if err := checkouts.RunMigrations(creds); err != nil {
		return fmt.Errorf("checkout migrations: %w", err)
	}
	log.Info("database migrations completed")

	checkoutService := checkoutservice.NewCheckoutService(checkouts, cartService, orderService, gw,
		checkoutservice.Settings{
			KeyID:          cfg.RazorpayKeyID,
			MerchantName:   cfg.MerchantName,
			Currency:       cfg.Currency,
			GatewayTimeout: cfg.GatewayTimeout,
		})

	// Background workers
	outbox := publisher.NewOutboxPoller(checkouts, checkoutService, writer, cfg.RecoveryAge, log)
	go outbox.Run(ctx)

	clearer := cartpoller.NewPoller(cartService, log, cfg.OrderTopic, cfg.KafkaBrokers...)
	defer clearer.Close()
	go clearer.Run(ctx)

	router := h.NewRouter(h.Handlers{
		Payment:  h.NewPaymentHandler(rzp, signature.NewVerifier(cfg.RazorpayKeySecret), cfg.Currency, cfg.PingMessage, cfg.GatewayTimeout),
		Products: h.NewProductHandler(productService, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(cartService, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(orderService, cfg.RequestTimeout),
		Admin:    h.NewAdminHandler(orderService, cfg.RequestTimeout),
	}, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		AdminToken:         cfg.AdminToken,
		Logger:             log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	outbox.Flush(shutdownCtx)

	log.Info("server exited")
	return nil
}
