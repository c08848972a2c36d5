package httpserver

import (
	"context"
	"errors"
	"log"

	"storefront-api/internal/domain"
	"storefront-api/internal/payment"
	orderrepo "storefront-api/internal/repository/order"
	"storefront-api/internal/service/checkout"
	ordersvc "storefront-api/internal/service/order"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CheckoutService interface {
	CreateIntent(ctx context.Context, ident domain.Identity, in checkout.CreateIntentInput) (*checkout.IntentResult, error)
	Confirm(ctx context.Context, ident domain.Identity, in checkout.ConfirmInput) (*domain.Order, error)
}

type OrderService interface {
	ListForUser(ctx context.Context, ident domain.Identity) ([]domain.Order, error)
	Get(ctx context.Context, ident domain.Identity, id string) (*domain.Order, error)
	ListAll(ctx context.Context, ident domain.Identity, in orderrepo.ListAllInput) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, ident domain.Identity, id string, status domain.OrderStatus) (*domain.Order, error)
	Stats(ctx context.Context, ident domain.Identity, in orderrepo.StatsInput) (*ordersvc.StatsResult, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error)
}

type TokenVerifier interface {
	Lookup(ctx context.Context, token string) (*domain.Identity, error)
}

type WebhookVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) (*payment.Event, error)
}

// Deps carries everything the router needs wired in.
type Deps struct {
	Tokens         TokenVerifier
	Checkout       CheckoutService
	Orders         OrderService
	Webhooks       WebhookVerifier
	PublishableKey string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) (*gin.Engine, error) {
	if deps.Tokens == nil || deps.Checkout == nil || deps.Orders == nil || deps.Webhooks == nil {
		return nil, errors.New("missing router dependencies")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	if len(corsOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = corsOrigins
		cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "Stripe-Signature")
		router.Use(cors.New(cfg))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api")

	payments := api.Group("/payments")
	payments.GET("/config", paymentConfigHandler(deps.PublishableKey))
	payments.POST("/webhook", webhookHandler(deps.Webhooks, deps.Orders, logger))
	paymentsAuth := payments.Group("", authMiddleware(deps.Tokens))
	paymentsAuth.POST("/create-payment-intent", createPaymentIntentHandler(deps.Checkout))
	paymentsAuth.POST("/confirm", confirmPaymentHandler(deps.Checkout))

	orders := api.Group("/orders", authMiddleware(deps.Tokens))
	orders.GET("", listOrdersHandler(deps.Orders))
	orders.GET("/admin/all", adminMiddleware(), adminListOrdersHandler(deps.Orders))
	orders.GET("/admin/stats", adminMiddleware(), adminStatsHandler(deps.Orders))
	orders.GET("/:id", getOrderHandler(deps.Orders))
	orders.PUT("/:id/status", adminMiddleware(), updateOrderStatusHandler(deps.Orders))

	return router, nil
}
