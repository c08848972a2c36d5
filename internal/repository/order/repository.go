package order

import (
	"context"
	"time"

	"storefront-api/internal/domain"
)

// ListAllInput filters the admin order listing.
type ListAllInput struct {
	Status string
	Page   int
	Limit  int
}

// StatsInput bounds the stats aggregation window. Nil means unbounded.
type StatsInput struct {
	Start *time.Time
	End   *time.Time
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type DayRevenue struct {
	Day          string `json:"day"`
	RevenueCents int64  `json:"revenueCents"`
	Orders       int64  `json:"orders"`
}

// Stats is a read-only projection over persisted orders.
type Stats struct {
	TotalRevenueCents      int64         `json:"totalRevenueCents"`
	TotalOrders            int64         `json:"totalOrders"`
	AverageOrderValueCents float64       `json:"averageOrderValueCents"`
	UniqueCustomers        int64         `json:"uniqueCustomers"`
	StatusBreakdown        []StatusCount `json:"statusBreakdown"`
	RevenueByDay           []DayRevenue  `json:"revenueByDay"`
}

type Repository interface {
	// Insert persists a new order. Returns domain.ErrDuplicateOrder when an
	// order already exists for the payment intent, domain.ErrAlreadyExists on
	// an order-number collision.
	Insert(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, in ListAllInput) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, delivered bool, deliveredAt *time.Time) (*domain.Order, error)
	Stats(ctx context.Context, in StatsInput) (*Stats, error)
}
