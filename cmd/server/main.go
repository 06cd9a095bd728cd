package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"tripflow/internal/app"
	"tripflow/internal/config"
	"tripflow/internal/gateway"
	"tripflow/internal/handler"
	internalRedis "tripflow/internal/redis"
	"tripflow/internal/repository/postgres"
	"tripflow/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	tripRepo := postgres.NewTripRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	payoutRepo := postgres.NewPayoutRepository(db)
	supplierRepo := postgres.NewSupplierRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	fleetRepo := postgres.NewFleetRepository(db)

	// Initialize payment gateway.
	stripeClient := gateway.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.RequestTimeout)
	webhookVerifier := gateway.NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)
	webhookVerifier.AllowUnsigned = cfg.Stripe.AllowUnsignedWebhooks
	if cfg.Stripe.AllowUnsignedWebhooks {
		log.Println("WARNING: webhook signature verification is disabled")
	}

	// Initialize services.
	notificationService := service.NewNotificationService()
	settlementService := service.NewSettlementService(
		payoutRepo, paymentRepo, supplierRepo, stripeClient, notificationService,
		cfg.Stripe.Currency, cfg.Stripe.InvoiceDueDays,
	)
	tripService := service.NewTripService(db, tripRepo, driverRepo, paymentRepo, settlementService, notificationService, cacheStore)
	paymentService := service.NewPaymentService(db, paymentRepo, tripRepo, notificationService, cacheStore)
	payoutService := service.NewPayoutService(payoutRepo, driverRepo, fleetRepo, stripeClient, lockStore, notificationService, cfg.Stripe.Currency)
	webhookService := service.NewWebhookService(payoutRepo, paymentRepo)
	connectService := service.NewConnectService(driverRepo, fleetRepo, stripeClient, cfg.Stripe.AccountCountry, cfg.App.BaseURL)
	reportService := service.NewReportService(tripRepo, payoutRepo)

	// Initialize handlers.
	tripHandler := handler.NewTripHandler(tripService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	payoutHandler := handler.NewPayoutHandler(payoutService)
	connectHandler := handler.NewConnectHandler(connectService)
	reportHandler := handler.NewReportHandler(reportService)
	webhookHandler := handler.NewWebhookHandler(webhookVerifier, webhookService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:    tripHandler,
		PaymentHandler: paymentHandler,
		PayoutHandler:  payoutHandler,
		ConnectHandler: connectHandler,
		ReportHandler:  reportHandler,
		WebhookHandler: webhookHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
