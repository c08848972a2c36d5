package product

import (
	"context"

	"storefront-api/internal/domain"
)

// ReserveItem is one conditional stock decrement within a reservation.
type ReserveItem struct {
	ProductID string
	Quantity  int
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// ReserveAll decrements inventory for every item inside a single
	// transaction. Any shortfall rolls the whole reservation back.
	ReserveAll(ctx context.Context, items []ReserveItem) error
	// ReleaseAll returns previously reserved stock, used to compensate a
	// reservation whose order turned out to be a duplicate.
	ReleaseAll(ctx context.Context, items []ReserveItem) error
	CountActive(ctx context.Context) (int64, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
