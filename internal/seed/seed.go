package seed

import (
	"context"
	"fmt"
	"time"

	"storefront-api/internal/domain"
	productrepo "storefront-api/internal/repository/product"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Apply inserts basic seed data for manual testing. It is idempotent via
// ON CONFLICT on product SKUs and token primary keys.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := productrepo.NewPostgres(pool, nil)

	for _, p := range demoProducts() {
		if _, err := products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	if err := upsertTokens(ctx, pool); err != nil {
		return fmt.Errorf("upsert tokens: %w", err)
	}

	return nil
}

func demoProducts() []domain.Product {
	return []domain.Product{
		{
			Name:        "Wireless Headphones",
			Description: "Over-ear wireless headphones with noise cancellation",
			SKU:         "SKU-HEADPHONES",
			Category:    "Electronics",
			Brand:       "Acme Audio",
			PriceCents:  12999,
			Currency:    "usd",
			Images:      []string{"https://example.com/img/headphones.jpg"},
			Inventory:   25,
			Featured:    true,
			IsActive:    true,
		},
		{
			Name:        "Cotton T-Shirt",
			Description: "Soft cotton tee",
			SKU:         "SKU-TSHIRT",
			Category:    "Clothing",
			Brand:       "Plainwear",
			PriceCents:  1999,
			Currency:    "usd",
			Images:      []string{"https://example.com/img/tshirt.jpg"},
			Inventory:   120,
			IsActive:    true,
		},
		{
			Name:        "Ceramic Mug",
			Description: "Ceramic mug with logo",
			SKU:         "SKU-MUG",
			Category:    "Home",
			PriceCents:  1299,
			Currency:    "usd",
			Inventory:   60,
			IsActive:    true,
		},
	}
}

// upsertTokens provisions bearer tokens for manual testing. Real token
// issuance lives in the external auth service.
func upsertTokens(ctx context.Context, pool *pgxpool.Pool) error {
	const q = `
INSERT INTO api_tokens (token, user_id, email, is_admin, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (token) DO UPDATE SET expires_at = EXCLUDED.expires_at
`
	expires := time.Now().Add(30 * 24 * time.Hour)
	tokens := []struct {
		token, userID, email string
		admin                bool
	}{
		{"dev-customer-token", "user-demo", "customer@example.com", false},
		{"dev-admin-token", "user-admin", "admin@example.com", true},
	}
	for _, t := range tokens {
		if _, err := pool.Exec(ctx, q, t.token, t.userID, t.email, t.admin, expires); err != nil {
			return err
		}
	}
	return nil
}
