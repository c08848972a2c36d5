package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"

	"storefront-api/internal/domain"
	"storefront-api/internal/payment"
	productrepo "storefront-api/internal/repository/product"
	ordersvc "storefront-api/internal/service/order"
	"storefront-api/internal/service/pricing"
)

type pricingEngine interface {
	Quote(ctx context.Context, items []pricing.LineItem) (domain.Breakdown, []domain.OrderItem, error)
}

type inventoryStore interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ReserveAll(ctx context.Context, items []productrepo.ReserveItem) error
	ReleaseAll(ctx context.Context, items []productrepo.ReserveItem) error
}

type orderLedger interface {
	Finalize(ctx context.Context, in ordersvc.FinalizeInput) (*domain.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error)
}

// Service sequences one checkout attempt: authoritative re-pricing, provider
// intent creation, and on confirmation the verified-success check, inventory
// reservation and order finalization.
type Service struct {
	pricing   pricingEngine
	gateway   payment.Gateway
	inventory inventoryStore
	ledger    orderLedger
	currency  string
	logger    *log.Logger
}

func New(pricing pricingEngine, gateway payment.Gateway, inventory inventoryStore, ledger orderLedger, currency string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		pricing:   pricing,
		gateway:   gateway,
		inventory: inventory,
		ledger:    ledger,
		currency:  currency,
		logger:    logger,
	}
}

type CreateIntentInput struct {
	Items           []pricing.LineItem     `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

type IntentResult struct {
	ClientSecret    string           `json:"clientSecret"`
	PaymentIntentID string           `json:"paymentIntentId"`
	Breakdown       domain.Breakdown `json:"breakdown"`
}

// CreateIntent re-prices the cart server-side and creates a provider intent
// for the computed total. Inventory is only checked, never reserved, so an
// abandoned checkout needs no compensation.
func (s *Service) CreateIntent(ctx context.Context, ident domain.Identity, in CreateIntentInput) (*IntentResult, error) {
	breakdown, _, err := s.pricing.Quote(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	// Fail fast on stock the cart can already see is missing. The
	// authoritative check happens at confirmation time.
	for _, item := range in.Items {
		p, err := s.inventory.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if p.Inventory < item.Quantity {
			return nil, fmt.Errorf("%w: %s", domain.ErrInsufficientInventory, p.Name)
		}
	}

	metadata := map[string]string{
		"userId":        ident.UserID,
		"subtotalCents": strconv.FormatInt(breakdown.SubtotalCents, 10),
		"taxCents":      strconv.FormatInt(breakdown.TaxCents, 10),
		"shippingCents": strconv.FormatInt(breakdown.ShippingCents, 10),
		"totalCents":    strconv.FormatInt(breakdown.TotalCents, 10),
	}
	intent, err := s.gateway.CreateIntent(ctx, breakdown.TotalCents, s.currency, metadata)
	if err != nil {
		return nil, err
	}

	s.logger.Printf("checkout: intent created id=%s user=%s total=%d", intent.ID, ident.UserID, breakdown.TotalCents)
	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Breakdown:       breakdown,
	}, nil
}

type ConfirmInput struct {
	PaymentIntentID string                 `json:"paymentIntentId"`
	Items           []pricing.LineItem     `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

// Confirm re-verifies the intent with the provider, reserves inventory and
// finalizes the order. Calling it twice for the same intent yields the same
// single order: a duplicate is resolved as a success replay, with the extra
// reservation released.
func (s *Service) Confirm(ctx context.Context, ident domain.Identity, in ConfirmInput) (*domain.Order, error) {
	if in.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: paymentIntentId required", domain.ErrValidation)
	}

	intent, err := s.gateway.RetrieveIntent(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != domain.PaymentIntentSucceeded {
		return nil, fmt.Errorf("%w: provider status %q", domain.ErrPaymentNotSucceeded, intent.Status)
	}

	// Cheap replay check before touching inventory. The unique constraint on
	// the intent id below is what actually closes the race.
	if existing, err := s.ledger.GetByPaymentIntent(ctx, intent.ID); err == nil {
		s.logger.Printf("checkout: replayed confirm for intent=%s order=%s", intent.ID, existing.OrderNumber)
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	breakdown, snapshots, err := s.pricing.Quote(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	// Charge what the provider actually charged: the breakdown embedded at
	// intent creation wins over a re-quote against a possibly changed catalog.
	if md, ok := breakdownFromMetadata(intent.Metadata); ok {
		breakdown = md
	}

	reserve := make([]productrepo.ReserveItem, 0, len(in.Items))
	for _, item := range in.Items {
		reserve = append(reserve, productrepo.ReserveItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if err := s.inventory.ReserveAll(ctx, reserve); err != nil {
		// Payment already succeeded provider-side; surface for manual
		// reconciliation, never create a partial order.
		s.logger.Printf("checkout: reservation failed after payment intent=%s: %v", intent.ID, err)
		return nil, err
	}

	created, err := s.ledger.Finalize(ctx, ordersvc.FinalizeInput{
		UserID:          ident.UserID,
		Email:           ident.Email,
		Items:           snapshots,
		ShippingAddress: in.ShippingAddress,
		PaymentIntentID: intent.ID,
		PaymentStatus:   intent.Status,
		Breakdown:       breakdown,
	})
	if errors.Is(err, domain.ErrDuplicateOrder) {
		// Lost the race against a concurrent confirm or webhook: give the
		// stock back and return the order that won.
		if relErr := s.inventory.ReleaseAll(ctx, reserve); relErr != nil {
			s.logger.Printf("checkout: release after duplicate intent=%s failed: %v", intent.ID, relErr)
		}
		return s.ledger.GetByPaymentIntent(ctx, intent.ID)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func breakdownFromMetadata(md map[string]string) (domain.Breakdown, bool) {
	var b domain.Breakdown
	var err error
	if b.SubtotalCents, err = strconv.ParseInt(md["subtotalCents"], 10, 64); err != nil {
		return domain.Breakdown{}, false
	}
	if b.TaxCents, err = strconv.ParseInt(md["taxCents"], 10, 64); err != nil {
		return domain.Breakdown{}, false
	}
	if b.ShippingCents, err = strconv.ParseInt(md["shippingCents"], 10, 64); err != nil {
		return domain.Breakdown{}, false
	}
	if b.TotalCents, err = strconv.ParseInt(md["totalCents"], 10, 64); err != nil {
		return domain.Breakdown{}, false
	}
	return b, true
}
