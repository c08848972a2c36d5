package token

import (
	"context"

	"storefront-api/internal/domain"
)

// Repository validates presented bearer tokens. Issuance happens outside
// this service; only the read side lives here.
type Repository interface {
	Lookup(ctx context.Context, token string) (*domain.Identity, error)
}
