package payment

import (
	"context"

	"storefront-api/internal/domain"
)

// Event is a verified inbound provider notification.
type Event struct {
	ID       string
	Type     string
	IntentID string
}

// Gateway is the stateless proxy in front of the payment provider. Intent
// state lives provider-side only; this system reads it back, never stores it.
type Gateway interface {
	// CreateIntent reserves a provider-side charge attempt for the given
	// amount. Metadata must carry the priced breakdown so the charge stays
	// auditable independent of later catalog changes.
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*domain.PaymentIntent, error)
	// RetrieveIntent fetches the authoritative provider-side status. A
	// client-reported success is never trusted without this check.
	RetrieveIntent(ctx context.Context, id string) (*domain.PaymentIntent, error)
	// VerifyWebhook authenticates an inbound notification. It fails closed:
	// any signature mismatch, truncation or stale timestamp yields
	// domain.ErrInvalidSignature and the event must not be processed.
	VerifyWebhook(payload []byte, sigHeader string) (*Event, error)
}
