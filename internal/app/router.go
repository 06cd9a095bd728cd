package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"tripflow/internal/handler"
	"tripflow/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler    *handler.TripHandler
	PaymentHandler *handler.PaymentHandler
	PayoutHandler  *handler.PayoutHandler
	ConnectHandler *handler.ConnectHandler
	ReportHandler  *handler.ReportHandler
	WebhookHandler *handler.WebhookHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Trip lifecycle routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("/available", deps.TripHandler.ListAvailableTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/claim", deps.TripHandler.ClaimTrip)
			trips.POST("/:id/start", deps.TripHandler.StartTrip)
			trips.POST("/:id/complete", deps.TripHandler.CompleteTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.POST("/:id/refund", deps.TripHandler.RefundTrip)
			trips.POST("/:id/settle", deps.TripHandler.RetrySettlement)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.InitiatePayment)
			payments.POST("/confirm", deps.PaymentHandler.ConfirmPayment)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
		}

		// Payout routes.
		payouts := v1.Group("/payouts")
		{
			payouts.GET("/:id", deps.PayoutHandler.GetPayout)
			payouts.POST("/:id/disburse", deps.PayoutHandler.Disburse)
		}

		// Connected account onboarding.
		v1.POST("/connect/onboard", deps.ConnectHandler.Onboard)

		// Reporting.
		v1.GET("/reports/financial", deps.ReportHandler.Financial)
	}

	// Gateway webhooks. Signature verification happens in the handler
	// against the raw body.
	router.POST("/webhooks/stripe", deps.WebhookHandler.HandleStripe)

	return router
}
