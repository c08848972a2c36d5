package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/httpserver"
	"storefront-api/internal/payment"
	orderrepo "storefront-api/internal/repository/order"
	productrepo "storefront-api/internal/repository/product"
	tokenrepo "storefront-api/internal/repository/token"
	checkoutsvc "storefront-api/internal/service/checkout"
	ordersvc "storefront-api/internal/service/order"
	pricingsvc "storefront-api/internal/service/pricing"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		logger.Fatalf("parse TAX_RATE %q: %v", cfg.TaxRate, err)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	products := productrepo.NewPostgres(dbpool, logger)
	orders := orderrepo.NewPostgres(dbpool, logger)
	tokens := tokenrepo.NewPostgres(dbpool, logger)

	gateway := payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.WebhookTolerance, logger)
	pricing := pricingsvc.New(products, pricingsvc.Config{
		TaxRate:                    taxRate,
		FlatShippingCents:          cfg.FlatShippingCents,
		FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
	}, logger)
	ledger := ordersvc.New(orders, products, logger)
	checkout := checkoutsvc.New(pricing, gateway, products, ledger, cfg.Currency, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Tokens:         tokens,
		Checkout:       checkout,
		Orders:         ledger,
		Webhooks:       gateway,
		PublishableKey: cfg.StripePublishableKey,
	}, cfg.CORSAllowOrigins)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
