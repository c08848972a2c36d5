package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"storefront-api/internal/domain"
	orderrepo "storefront-api/internal/repository/order"
	"github.com/google/uuid"
)

const orderNumberAttempts = 5

type orderRepo interface {
	Insert(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, in orderrepo.ListAllInput) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, delivered bool, deliveredAt *time.Time) (*domain.Order, error)
	Stats(ctx context.Context, in orderrepo.StatsInput) (*orderrepo.Stats, error)
}

type productCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// Service is the order ledger: it creates immutable paid orders and owns the
// status-transition and read paths on top of them.
type Service struct {
	repo     orderRepo
	products productCounter
	logger   *log.Logger
}

func New(repo orderrepo.Repository, products productCounter, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, products: products, logger: logger}
}

// FinalizeInput carries everything needed to persist one immutable order.
// Payment status must be the re-verified provider status, never the
// client-reported one.
type FinalizeInput struct {
	UserID          string
	Email           string
	Items           []domain.OrderItem
	ShippingAddress domain.ShippingAddress
	PaymentIntentID string
	PaymentStatus   domain.PaymentIntentStatus
	Breakdown       domain.Breakdown
}

// Finalize persists the order exactly once per payment intent. An
// order-number collision is retried with a fresh number; a payment-intent
// collision surfaces as domain.ErrDuplicateOrder for the caller to resolve
// as a success replay.
func (s *Service) Finalize(ctx context.Context, in FinalizeInput) (*domain.Order, error) {
	if in.PaymentStatus != domain.PaymentIntentSucceeded {
		return nil, fmt.Errorf("%w: provider status %q", domain.ErrPaymentNotSucceeded, in.PaymentStatus)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: no order items", domain.ErrValidation)
	}
	if in.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: payment intent id required", domain.ErrValidation)
	}

	now := time.Now().UTC()
	for i := 0; i < orderNumberAttempts; i++ {
		o := domain.Order{
			OrderNumber:     newOrderNumber(now),
			UserID:          in.UserID,
			Items:           in.Items,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   "card",
			Payment: domain.PaymentResult{
				IntentID:   in.PaymentIntentID,
				Status:     string(in.PaymentStatus),
				Email:      in.Email,
				UpdateTime: now,
			},
			Breakdown: in.Breakdown,
			Status:    domain.OrderStatusProcessing,
			IsPaid:    true,
			PaidAt:    &now,
		}
		created, err := s.repo.Insert(ctx, o)
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Printf("order ledger: finalized number=%s user=%s intent=%s", created.OrderNumber, in.UserID, in.PaymentIntentID)
		return created, nil
	}
	return nil, errors.New("order number collision")
}

// GetByPaymentIntent resolves the order persisted for a provider intent.
func (s *Service) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	return s.repo.GetByPaymentIntentID(ctx, intentID)
}

// Get returns one order, restricted to its owner or an admin.
func (s *Service) Get(ctx context.Context, ident domain.Identity, id string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != ident.UserID && !ident.IsAdmin {
		return nil, fmt.Errorf("%w: not authorized to view this order", domain.ErrForbidden)
	}
	return o, nil
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, ident domain.Identity) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, ident.UserID)
}

// ListAll returns all orders with an optional status filter, admin only.
func (s *Service) ListAll(ctx context.Context, ident domain.Identity, in orderrepo.ListAllInput) ([]domain.Order, int64, error) {
	if !ident.IsAdmin {
		return nil, 0, fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	if in.Status != "" && !domain.OrderStatus(in.Status).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, in.Status)
	}
	return s.repo.ListAll(ctx, in)
}

// UpdateStatus transitions an order's status, admin only. Transitioning to
// delivered additionally stamps the delivery fields; nothing else on a paid
// order is mutable.
func (s *Service) UpdateStatus(ctx context.Context, ident domain.Identity, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !ident.IsAdmin {
		return nil, fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}

	delivered := status == domain.OrderStatusDelivered
	var deliveredAt *time.Time
	if delivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}
	return s.repo.UpdateStatus(ctx, id, status, delivered, deliveredAt)
}

// StatsResult extends the ledger aggregates with catalog counts.
type StatsResult struct {
	orderrepo.Stats
	TotalProducts int64 `json:"totalProducts"`
}

// Stats aggregates revenue and order counts over a date range, admin only.
func (s *Service) Stats(ctx context.Context, ident domain.Identity, in orderrepo.StatsInput) (*StatsResult, error) {
	if !ident.IsAdmin {
		return nil, fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	stats, err := s.repo.Stats(ctx, in)
	if err != nil {
		return nil, err
	}
	res := &StatsResult{Stats: *stats}
	if s.products != nil {
		n, err := s.products.CountActive(ctx)
		if err != nil {
			return nil, err
		}
		res.TotalProducts = n
	}
	return res, nil
}

// newOrderNumber builds a human-readable, collision-resistant order number.
// Uniqueness is enforced by the database; Finalize retries on collision.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
