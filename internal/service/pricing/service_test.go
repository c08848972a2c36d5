package pricing

import (
	"context"
	"errors"
	"testing"

	"storefront-api/internal/domain"
	"github.com/shopspring/decimal"
)

type stubProductRepo struct {
	products map[string]*domain.Product
}

func (s *stubProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func testConfig() Config {
	return Config{
		TaxRate:                    decimal.RequireFromString("0.10"),
		FlatShippingCents:          1000,
		FreeShippingThresholdCents: 5000,
	}
}

func TestQuoteFreeShippingAtThreshold(t *testing.T) {
	repo := &stubProductRepo{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 10, IsActive: true},
	}}
	svc := New(repo, testConfig(), nil)

	breakdown, snapshots, err := svc.Quote(context.Background(), []LineItem{{ProductID: "p1", Quantity: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.SubtotalCents != 5000 {
		t.Fatalf("subtotal = %d, want 5000", breakdown.SubtotalCents)
	}
	if breakdown.ShippingCents != 0 {
		t.Fatalf("shipping = %d, want 0 (subtotal at free-shipping threshold)", breakdown.ShippingCents)
	}
	if breakdown.TaxCents != 500 {
		t.Fatalf("tax = %d, want 500", breakdown.TaxCents)
	}
	if breakdown.TotalCents != 5500 {
		t.Fatalf("total = %d, want 5500", breakdown.TotalCents)
	}
	if len(snapshots) != 1 || snapshots[0].PriceCents != 2500 || snapshots[0].Quantity != 2 {
		t.Fatalf("unexpected snapshots %+v", snapshots)
	}
}

func TestQuoteFlatShippingBelowThreshold(t *testing.T) {
	repo := &stubProductRepo{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Widget", PriceCents: 1999, Inventory: 10, IsActive: true},
	}}
	svc := New(repo, testConfig(), nil)

	breakdown, _, err := svc.Quote(context.Background(), []LineItem{{ProductID: "p1", Quantity: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.ShippingCents != 1000 {
		t.Fatalf("shipping = %d, want flat 1000", breakdown.ShippingCents)
	}
	// 1999 * 0.10 rounds to 200.
	if breakdown.TaxCents != 200 {
		t.Fatalf("tax = %d, want 200", breakdown.TaxCents)
	}
	if breakdown.TotalCents != 1999+200+1000 {
		t.Fatalf("total = %d, want %d", breakdown.TotalCents, 1999+200+1000)
	}
}

func TestQuoteIgnoresClientPrices(t *testing.T) {
	repo := &stubProductRepo{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Widget", PriceCents: 7000, Inventory: 10, IsActive: true},
	}}
	svc := New(repo, testConfig(), nil)

	// LineItem carries no price field at all; the catalog price is the only input.
	breakdown, _, err := svc.Quote(context.Background(), []LineItem{{ProductID: "p1", Quantity: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.SubtotalCents != 7000 {
		t.Fatalf("subtotal = %d, want catalog price 7000", breakdown.SubtotalCents)
	}
}

func TestQuoteEmptyItems(t *testing.T) {
	svc := New(&stubProductRepo{}, testConfig(), nil)
	_, _, err := svc.Quote(context.Background(), nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestQuoteNonPositiveQuantity(t *testing.T) {
	svc := New(&stubProductRepo{}, testConfig(), nil)
	_, _, err := svc.Quote(context.Background(), []LineItem{{ProductID: "p1", Quantity: 0}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestQuoteUnknownProduct(t *testing.T) {
	svc := New(&stubProductRepo{}, testConfig(), nil)
	_, _, err := svc.Quote(context.Background(), []LineItem{{ProductID: "ghost", Quantity: 1}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQuoteInactiveProduct(t *testing.T) {
	repo := &stubProductRepo{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Retired", PriceCents: 100, IsActive: false},
	}}
	svc := New(repo, testConfig(), nil)
	_, _, err := svc.Quote(context.Background(), []LineItem{{ProductID: "p1", Quantity: 1}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive product, got %v", err)
	}
}
