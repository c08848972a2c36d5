package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"storefront-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const productColumns = `id::text, name, description, COALESCE(sku, ''), category, brand, price_cents, compare_at_price_cents, currency, images, inventory, featured, is_active, created_at, updated_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.SKU, &p.Category, &p.Brand,
		&p.PriceCents, &p.CompareAtPriceCents, &p.Currency, &p.Images,
		&p.Inventory, &p.Featured, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

// ReserveAll performs every conditional decrement in one transaction so a
// shortfall on any line item leaves no partial decrement behind. The
// inventory >= quantity guard in the UPDATE is the atomicity boundary for
// concurrent reservations against the same product.
func (r *postgresRepo) ReserveAll(ctx context.Context, items []ReserveItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `
UPDATE products
SET inventory = inventory - $2, updated_at = now()
WHERE id = $1 AND is_active AND inventory >= $2
`
	for _, item := range items {
		tag, err := tx.Exec(ctx, q, item.ProductID, item.Quantity)
		if err != nil {
			r.logger.Printf("product repo: reserve id=%s qty=%d error=%v", item.ProductID, item.Quantity, err)
			return err
		}
		if tag.RowsAffected() == 0 {
			var active bool
			err := tx.QueryRow(ctx, `SELECT is_active FROM products WHERE id = $1`, item.ProductID).Scan(&active)
			if errors.Is(err, pgx.ErrNoRows) || (err == nil && !active) {
				return fmt.Errorf("%w: product %s", domain.ErrNotFound, item.ProductID)
			}
			if err != nil {
				return err
			}
			r.logger.Printf("product repo: reserve id=%s qty=%d insufficient", item.ProductID, item.Quantity)
			return fmt.Errorf("%w: product %s", domain.ErrInsufficientInventory, item.ProductID)
		}
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) ReleaseAll(ctx context.Context, items []ReserveItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE products SET inventory = inventory + $2, updated_at = now() WHERE id = $1`
	for _, item := range items {
		if _, err := tx.Exec(ctx, q, item.ProductID, item.Quantity); err != nil {
			r.logger.Printf("product repo: release id=%s qty=%d error=%v", item.ProductID, item.Quantity, err)
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, name, description, sku, category, brand, price_cents, compare_at_price_cents, currency, images, inventory, featured, is_active)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, COALESCE($10, '[]'::jsonb), $11, $12, $13)
ON CONFLICT (sku) WHERE sku IS NOT NULL DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    category = EXCLUDED.category,
    brand = EXCLUDED.brand,
    price_cents = EXCLUDED.price_cents,
    compare_at_price_cents = EXCLUDED.compare_at_price_cents,
    currency = EXCLUDED.currency,
    images = EXCLUDED.images,
    inventory = EXCLUDED.inventory,
    featured = EXCLUDED.featured,
    is_active = EXCLUDED.is_active,
    updated_at = now()
RETURNING id::text, created_at, updated_at
`
	res := p
	err := r.pool.QueryRow(ctx, q,
		p.ID, p.Name, p.Description, p.SKU, p.Category, p.Brand,
		p.PriceCents, p.CompareAtPriceCents, p.Currency, p.Images,
		p.Inventory, p.Featured, p.IsActive,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert sku=%s error=%v", p.SKU, err)
		return nil, err
	}
	return &res, nil
}
