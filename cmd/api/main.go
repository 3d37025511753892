package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/coupon"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/gateway"
	"storefront/internal/handler"
	"storefront/internal/notification"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)

	validator, err := newCouponValidator(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize coupon validator: %w", err)
	}
	defer validator.Close()

	gatewayClient := gateway.NewClient(cfg.Gateway, logger)
	stock := service.NewStockReconciler(productRepo, logger)

	checkoutService := service.NewCheckoutService(
		orderRepo,
		productRepo,
		outboxRepo,
		validator,
		gatewayClient,
		stock,
		service.CheckoutOptions{
			Pricing: service.PricingPolicy{
				Currency:              cfg.Checkout.Currency,
				FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
				ShippingCost:          cfg.Checkout.ShippingCost,
				TaxRate:               cfg.Checkout.TaxRate,
			},
			CallbackURL: cfg.Gateway.CallbackURL,
		},
		logger,
	)
	orderService := service.NewOrderService(orderRepo, outboxRepo, gatewayClient, stock, logger)

	sender, err := newSender(ctx, cfg.Notification, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}

	publisher, err := newPublisher(cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	defer publisher.Close()

	worker := notification.NewWorker(
		orderRepo,
		outboxRepo,
		notification.NewDispatcher(notification.NewEmailNotifier(sender, logger)),
		publisher,
		notification.WorkerConfig{
			PollInterval: cfg.Notification.PollInterval,
			BatchSize:    cfg.Notification.BatchSize,
			MaxAttempts:  cfg.Notification.MaxAttempts,
			RetryBase:    cfg.Notification.RetryBase,
		},
		logger,
	)

	workerCtx, stopWorker := context.WithCancel(ctx)
	var workerDone sync.WaitGroup
	workerDone.Add(1)
	go func() {
		defer workerDone.Done()
		worker.Run(workerCtx)
	}()
	defer func() {
		stopWorker()
		workerDone.Wait()
	}()

	checkoutHandler := handler.NewCheckoutHandler(checkoutService, cfg.Checkout.ResultURL, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)

	mux := router.New(checkoutHandler, orderHandler, cfg.Auth.APIKey, logger)

	// WriteTimeout leaves room for a gateway round trip on top of our own work.
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Gateway.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newCouponValidator loads rule files from S3 when enabled, falling back to
// the local copies.
func newCouponValidator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (coupon.Validator, error) {
	fileLoader := coupon.NewFileLoader(logger)

	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		loader, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = loader
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}

	loader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, s3Loader != nil, logger)

	return coupon.NewValidator(ctx, coupon.ValidatorConfig{FilePaths: cfg.Coupon.FilePaths}, loader, logger)
}

func newSender(ctx context.Context, cfg config.NotificationConfig, logger zerolog.Logger) (notification.Sender, error) {
	if cfg.Sender == "ses" {
		return notification.NewSESSender(ctx, cfg.Region, cfg.FromAddress, cfg.TemplatePrefix, logger)
	}
	logger.Info().Msg("emails are logged, not sent (NOTIFY_SENDER=log)")
	return notification.NewLogSender(logger), nil
}

func newPublisher(cfg config.KafkaConfig, logger zerolog.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NewNopPublisher(logger), nil
	}
	return events.NewKafkaPublisher(cfg, logger)
}
