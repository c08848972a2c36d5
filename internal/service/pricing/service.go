package pricing

import (
	"context"
	"fmt"
	"io"
	"log"

	"storefront-api/internal/domain"
	"github.com/shopspring/decimal"
)

// LineItem is client-declared input. Only productId and quantity are read;
// unit prices always come from the catalog.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Config fixes the pricing rules. Shipping is free once the subtotal reaches
// the threshold.
type Config struct {
	TaxRate                    decimal.Decimal
	FlatShippingCents          int64
	FreeShippingThresholdCents int64
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Service derives the authoritative priced breakdown for a cart.
type Service struct {
	products productRepo
	cfg      Config
	logger   *log.Logger
}

func New(products productRepo, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{products: products, cfg: cfg, logger: logger}
}

// Quote prices the given line items against current catalog prices and
// returns the breakdown plus per-item snapshots for later order creation.
// Caller-supplied prices or totals never enter this computation.
func (s *Service) Quote(ctx context.Context, items []LineItem) (domain.Breakdown, []domain.OrderItem, error) {
	if len(items) == 0 {
		return domain.Breakdown{}, nil, fmt.Errorf("%w: no items provided", domain.ErrValidation)
	}

	var subtotal int64
	snapshots := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return domain.Breakdown{}, nil, fmt.Errorf("%w: quantity must be positive for product %s", domain.ErrValidation, item.ProductID)
		}
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return domain.Breakdown{}, nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if !p.IsActive {
			return domain.Breakdown{}, nil, fmt.Errorf("%w: product %s is not active", domain.ErrNotFound, item.ProductID)
		}

		subtotal += p.PriceCents * int64(item.Quantity)

		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		snapshots = append(snapshots, domain.OrderItem{
			ProductID:  p.ID,
			Name:       p.Name,
			PriceCents: p.PriceCents,
			Quantity:   item.Quantity,
			Image:      image,
		})
	}

	tax := decimal.NewFromInt(subtotal).Mul(s.cfg.TaxRate).Round(0).IntPart()

	shipping := s.cfg.FlatShippingCents
	if subtotal >= s.cfg.FreeShippingThresholdCents {
		shipping = 0
	}

	breakdown := domain.Breakdown{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    subtotal + tax + shipping,
	}
	s.logger.Printf("pricing: quoted items=%d subtotal=%d tax=%d shipping=%d total=%d",
		len(items), breakdown.SubtotalCents, breakdown.TaxCents, breakdown.ShippingCents, breakdown.TotalCents)
	return breakdown, snapshots, nil
}
