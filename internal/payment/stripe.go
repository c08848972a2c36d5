package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"storefront-api/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
	logger        *log.Logger
}

func NewStripe(secretKey, webhookSecret string, tolerance time.Duration, logger *log.Logger) *StripeGateway {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: webhookSecret,
		tolerance:     tolerance,
		logger:        logger,
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Printf("stripe: create intent amount=%d error=%v", amountCents, err)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	g.logger.Printf("stripe: created intent id=%s amount=%d", pi.ID, pi.Amount)
	return toDomainIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		g.logger.Printf("stripe: retrieve intent id=%s error=%v", id, err)
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return toDomainIntent(pi), nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, sigHeader string) (*Event, error) {
	// Events carry the account's pinned API version, which rarely matches the
	// SDK's; the signature check is what authenticates the payload.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		g.logger.Printf("stripe: webhook verification failed: %v", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && event.Data != nil {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &obj); err == nil {
			out.IntentID = obj.ID
		}
	}
	return out, nil
}

func toDomainIntent(pi *stripe.PaymentIntent) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       domain.PaymentIntentStatus(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}
