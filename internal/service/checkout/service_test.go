package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"storefront-api/internal/domain"
	"storefront-api/internal/payment"
	productrepo "storefront-api/internal/repository/product"
	ordersvc "storefront-api/internal/service/order"
	"storefront-api/internal/service/pricing"
	"github.com/shopspring/decimal"
)

// memInventory guards stock with a mutex so concurrent reservations exercise
// the same check-and-decrement contract the Postgres repository provides.
type memInventory struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func (m *memInventory) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memInventory) ReserveAll(_ context.Context, items []productrepo.ReserveItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		p, ok := m.products[item.ProductID]
		if !ok || !p.IsActive {
			return fmt.Errorf("%w: product %s", domain.ErrNotFound, item.ProductID)
		}
		if p.Inventory < item.Quantity {
			return fmt.Errorf("%w: product %s", domain.ErrInsufficientInventory, item.ProductID)
		}
	}
	for _, item := range items {
		m.products[item.ProductID].Inventory -= item.Quantity
	}
	return nil
}

func (m *memInventory) ReleaseAll(_ context.Context, items []productrepo.ReserveItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.products[item.ProductID].Inventory += item.Quantity
	}
	return nil
}

func (m *memInventory) inventory(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Inventory
}

type fakeGateway struct {
	mu        sync.Mutex
	intents   map[string]*domain.PaymentIntent
	created   int
	createErr error
}

func (g *fakeGateway) CreateIntent(_ context.Context, amountCents int64, currency string, metadata map[string]string) (*domain.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	id := fmt.Sprintf("pi_%d", g.created)
	intent := &domain.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       domain.PaymentIntentStatus("requires_payment_method"),
		AmountCents:  amountCents,
		Currency:     currency,
		Metadata:     metadata,
	}
	if g.intents == nil {
		g.intents = map[string]*domain.PaymentIntent{}
	}
	g.intents[id] = intent
	return intent, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, id string) (*domain.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (g *fakeGateway) VerifyWebhook(_ []byte, _ string) (*payment.Event, error) {
	return nil, domain.ErrInvalidSignature
}

func (g *fakeGateway) setStatus(id string, status domain.PaymentIntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = status
}

// memLedger enforces intent-id uniqueness the way the orders table does.
type memLedger struct {
	mu       sync.Mutex
	byIntent map[string]*domain.Order
	seq      int
}

func (l *memLedger) Finalize(_ context.Context, in ordersvc.FinalizeInput) (*domain.Order, error) {
	if in.PaymentStatus != domain.PaymentIntentSucceeded {
		return nil, domain.ErrPaymentNotSucceeded
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.byIntent == nil {
		l.byIntent = map[string]*domain.Order{}
	}
	if _, exists := l.byIntent[in.PaymentIntentID]; exists {
		return nil, domain.ErrDuplicateOrder
	}
	l.seq++
	o := &domain.Order{
		ID:          fmt.Sprintf("order-%d", l.seq),
		OrderNumber: fmt.Sprintf("ORD-%04d", l.seq),
		UserID:      in.UserID,
		Items:       in.Items,
		Payment:     domain.PaymentResult{IntentID: in.PaymentIntentID, Status: string(in.PaymentStatus)},
		Breakdown:   in.Breakdown,
		Status:      domain.OrderStatusProcessing,
		IsPaid:      true,
	}
	l.byIntent[in.PaymentIntentID] = o
	return o, nil
}

func (l *memLedger) GetByPaymentIntent(_ context.Context, intentID string) (*domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.byIntent[intentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byIntent)
}

func newTestService(inv *memInventory, gw *fakeGateway, ledger *memLedger) *Service {
	pricer := pricing.New(inv, pricing.Config{
		TaxRate:                    decimal.RequireFromString("0.10"),
		FlatShippingCents:          1000,
		FreeShippingThresholdCents: 5000,
	}, nil)
	return New(pricer, gw, inv, ledger, "usd", nil)
}

func stockOf(products ...*domain.Product) *memInventory {
	m := &memInventory{products: map[string]*domain.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

var ident = domain.Identity{UserID: "u1", Email: "u1@example.com"}

func TestCreateIntentUsesServerPricing(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 5, IsActive: true})
	gw := &fakeGateway{}
	svc := newTestService(inv, gw, &memLedger{})

	res, err := svc.CreateIntent(context.Background(), ident, CreateIntentInput{
		Items: []pricing.LineItem{{ProductID: "p1", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Breakdown.TotalCents != 5500 {
		t.Fatalf("total = %d, want 5500", res.Breakdown.TotalCents)
	}
	intent := gw.intents[res.PaymentIntentID]
	if intent.AmountCents != 5500 {
		t.Fatalf("charged amount = %d, want server-computed 5500", intent.AmountCents)
	}
	if intent.Metadata["totalCents"] != "5500" || intent.Metadata["subtotalCents"] != "5000" {
		t.Fatalf("breakdown missing from metadata: %v", intent.Metadata)
	}
	if intent.Metadata["userId"] != "u1" {
		t.Fatalf("metadata userId = %q", intent.Metadata["userId"])
	}
	if inv.inventory("p1") != 5 {
		t.Fatalf("intent creation must not reserve stock, inventory = %d", inv.inventory("p1"))
	}
}

func TestCreateIntentInsufficientStockFailsBeforeProvider(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 1, IsActive: true})
	gw := &fakeGateway{}
	svc := newTestService(inv, gw, &memLedger{})

	_, err := svc.CreateIntent(context.Background(), ident, CreateIntentInput{
		Items: []pricing.LineItem{{ProductID: "p1", Quantity: 2}},
	})
	if !errors.Is(err, domain.ErrInsufficientInventory) {
		t.Fatalf("expected ErrInsufficientInventory, got %v", err)
	}
	if gw.created != 0 {
		t.Fatalf("no provider intent may exist for unfulfillable carts, created = %d", gw.created)
	}
}

func confirmInput(intentID string) ConfirmInput {
	return ConfirmInput{
		PaymentIntentID: intentID,
		Items:           []pricing.LineItem{{ProductID: "p1", Quantity: 1}},
	}
}

func setupPaidIntent(t *testing.T, svc *Service, gw *fakeGateway, status domain.PaymentIntentStatus, qty int) string {
	t.Helper()
	res, err := svc.CreateIntent(context.Background(), ident, CreateIntentInput{
		Items: []pricing.LineItem{{ProductID: "p1", Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	gw.setStatus(res.PaymentIntentID, status)
	return res.PaymentIntentID
}

func TestConfirmSucceededCreatesOrderAndReserves(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 3, IsActive: true})
	gw := &fakeGateway{}
	ledger := &memLedger{}
	svc := newTestService(inv, gw, ledger)

	intentID := setupPaidIntent(t, svc, gw, domain.PaymentIntentSucceeded, 2)
	order, err := svc.Confirm(context.Background(), ident, ConfirmInput{
		PaymentIntentID: intentID,
		Items:           []pricing.LineItem{{ProductID: "p1", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Breakdown.TotalCents != 5500 {
		t.Fatalf("order total = %d, want intent-metadata total 5500", order.Breakdown.TotalCents)
	}
	if inv.inventory("p1") != 1 {
		t.Fatalf("inventory = %d, want 1 after reserving 2", inv.inventory("p1"))
	}
	if len(order.Items) != 1 || order.Items[0].PriceCents != 2500 {
		t.Fatalf("unexpected item snapshots %+v", order.Items)
	}
}

func TestConfirmRequiresActionNoOrderNoInventory(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 3, IsActive: true})
	gw := &fakeGateway{}
	ledger := &memLedger{}
	svc := newTestService(inv, gw, ledger)

	intentID := setupPaidIntent(t, svc, gw, domain.PaymentIntentRequiresAction, 1)
	_, err := svc.Confirm(context.Background(), ident, confirmInput(intentID))
	if !errors.Is(err, domain.ErrPaymentNotSucceeded) {
		t.Fatalf("expected ErrPaymentNotSucceeded, got %v", err)
	}
	if ledger.count() != 0 {
		t.Fatalf("no order may be created, got %d", ledger.count())
	}
	if inv.inventory("p1") != 3 {
		t.Fatalf("inventory must be untouched, got %d", inv.inventory("p1"))
	}
}

func TestConfirmFailedIntentNeverCreatesOrder(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 3, IsActive: true})
	gw := &fakeGateway{}
	ledger := &memLedger{}
	svc := newTestService(inv, gw, ledger)

	// Client claims success; provider says otherwise.
	intentID := setupPaidIntent(t, svc, gw, domain.PaymentIntentCanceled, 1)
	_, err := svc.Confirm(context.Background(), ident, confirmInput(intentID))
	if !errors.Is(err, domain.ErrPaymentNotSucceeded) {
		t.Fatalf("expected ErrPaymentNotSucceeded, got %v", err)
	}
	if ledger.count() != 0 || inv.inventory("p1") != 3 {
		t.Fatalf("failed payment must leave no state change")
	}
}

func TestConfirmReplayReturnsExistingOrder(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 3, IsActive: true})
	gw := &fakeGateway{}
	ledger := &memLedger{}
	svc := newTestService(inv, gw, ledger)

	intentID := setupPaidIntent(t, svc, gw, domain.PaymentIntentSucceeded, 1)
	first, err := svc.Confirm(context.Background(), ident, confirmInput(intentID))
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := svc.Confirm(context.Background(), ident, confirmInput(intentID))
	if err != nil {
		t.Fatalf("replayed confirm must succeed, got %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay returned a different order: %s vs %s", second.ID, first.ID)
	}
	if ledger.count() != 1 {
		t.Fatalf("orders = %d, want exactly 1", ledger.count())
	}
	if inv.inventory("p1") != 2 {
		t.Fatalf("inventory = %d, want 2 (reserved once)", inv.inventory("p1"))
	}
}

func TestConfirmInsufficientInventoryAfterPayment(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 5, IsActive: true})
	gw := &fakeGateway{}
	ledger := &memLedger{}
	svc := newTestService(inv, gw, ledger)

	intentID := setupPaidIntent(t, svc, gw, domain.PaymentIntentSucceeded, 2)
	// Stock drains between payment and confirmation.
	inv.mu.Lock()
	inv.products["p1"].Inventory = 1
	inv.mu.Unlock()

	_, err := svc.Confirm(context.Background(), ident, ConfirmInput{
		PaymentIntentID: intentID,
		Items:           []pricing.LineItem{{ProductID: "p1", Quantity: 2}},
	})
	if !errors.Is(err, domain.ErrInsufficientInventory) {
		t.Fatalf("expected ErrInsufficientInventory, got %v", err)
	}
	if ledger.count() != 0 {
		t.Fatalf("no partial order may be created")
	}
	if inv.inventory("p1") != 1 {
		t.Fatalf("failed reservation must not decrement, inventory = %d", inv.inventory("p1"))
	}
}

func TestConcurrentConfirmsSingleUnit(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 1, IsActive: true})
	gw := &fakeGateway{}
	ledger := &memLedger{}
	svc := newTestService(inv, gw, ledger)

	// Two shoppers, two distinct intents, one unit of stock.
	intentA := setupPaidIntent(t, svc, gw, domain.PaymentIntentSucceeded, 1)
	intentB := setupPaidIntent(t, svc, gw, domain.PaymentIntentSucceeded, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, intentID := range []string{intentA, intentB} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(context.Background(), ident, confirmInput(id))
		}(i, intentID)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientInventory):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("got %d successes and %d insufficient, want 1 and 1", ok, insufficient)
	}
	if ledger.count() != 1 {
		t.Fatalf("orders = %d, want 1", ledger.count())
	}
	if inv.inventory("p1") != 0 {
		t.Fatalf("inventory = %d, want 0", inv.inventory("p1"))
	}
}

func TestConcurrentConfirmsSameIntentAtMostOneOrder(t *testing.T) {
	inv := stockOf(&domain.Product{ID: "p1", Name: "Widget", PriceCents: 2500, Inventory: 10, IsActive: true})
	gw := &fakeGateway{}
	ledger := &memLedger{}
	svc := newTestService(inv, gw, ledger)

	intentID := setupPaidIntent(t, svc, gw, domain.PaymentIntentSucceeded, 1)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(context.Background(), ident, confirmInput(intentID))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("every duplicate confirm must resolve as replay, got %v", err)
		}
	}
	if ledger.count() != 1 {
		t.Fatalf("orders = %d, want exactly 1 for one intent", ledger.count())
	}
	if got := inv.inventory("p1"); got != 9 {
		t.Fatalf("inventory = %d, want 9 (each duplicate reservation released)", got)
	}
}
