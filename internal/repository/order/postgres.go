package order

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"storefront-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const orderColumns = `id::text, order_number, user_id, items, shipping_address, payment_method,
payment_intent_id, payment_status, payment_email, payment_update_time,
subtotal_cents, tax_cents, shipping_cents, total_cents,
status, is_paid, paid_at, is_delivered, delivered_at, notes, created_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Items, &o.ShippingAddress, &o.PaymentMethod,
		&o.Payment.IntentID, &o.Payment.Status, &o.Payment.Email, &o.Payment.UpdateTime,
		&o.Breakdown.SubtotalCents, &o.Breakdown.TaxCents, &o.Breakdown.ShippingCents, &o.Breakdown.TotalCents,
		&status, &o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.Notes, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

func (r *postgresRepo) Insert(ctx context.Context, o domain.Order) (*domain.Order, error) {
	const q = `
INSERT INTO orders (order_number, user_id, items, shipping_address, payment_method,
    payment_intent_id, payment_status, payment_email, payment_update_time,
    subtotal_cents, tax_cents, shipping_cents, total_cents,
    status, is_paid, paid_at, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING ` + orderColumns

	row := r.pool.QueryRow(ctx, q,
		o.OrderNumber, o.UserID, o.Items, o.ShippingAddress, o.PaymentMethod,
		o.Payment.IntentID, o.Payment.Status, o.Payment.Email, o.Payment.UpdateTime,
		o.Breakdown.SubtotalCents, o.Breakdown.TaxCents, o.Breakdown.ShippingCents, o.Breakdown.TotalCents,
		string(o.Status), o.IsPaid, o.PaidAt, o.Notes,
	)
	created, err := scanOrder(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "idx_orders_payment_intent":
				r.logger.Printf("order repo: insert intent=%s duplicate", o.Payment.IntentID)
				return nil, domain.ErrDuplicateOrder
			case "idx_orders_order_number":
				return nil, domain.ErrAlreadyExists
			}
		}
		r.logger.Printf("order repo: insert number=%s error=%v", o.OrderNumber, err)
		return nil, err
	}
	r.logger.Printf("order repo: inserted number=%s intent=%s total=%d", created.OrderNumber, created.Payment.IntentID, created.Breakdown.TotalCents)
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, intentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get intent=%s error=%v", intentID, err)
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Printf("order repo: list user=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *postgresRepo) ListAll(ctx context.Context, in ListAllInput) ([]domain.Order, int64, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	q := `SELECT ` + orderColumns + `
FROM orders
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, q, in.Status, offset, limit)
	if err != nil {
		r.logger.Printf("order repo: list all status=%q error=%v", in.Status, err)
		return nil, 0, err
	}
	defer rows.Close()
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`, in.Status).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, delivered bool, deliveredAt *time.Time) (*domain.Order, error) {
	q := `
UPDATE orders
SET status = $2,
    is_delivered = (is_delivered OR $3),
    delivered_at = COALESCE(delivered_at, $4)
WHERE id = $1
RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id, string(status), delivered, deliveredAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: update status id=%s error=%v", id, err)
		return nil, err
	}
	r.logger.Printf("order repo: status id=%s -> %s", id, status)
	return o, nil
}

func (r *postgresRepo) Stats(ctx context.Context, in StatsInput) (*Stats, error) {
	const window = `($1::timestamptz IS NULL OR created_at >= $1) AND ($2::timestamptz IS NULL OR created_at <= $2)`

	var s Stats
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(total_cents), 0), COUNT(*), COALESCE(AVG(total_cents), 0), COUNT(DISTINCT user_id)
FROM orders WHERE `+window, in.Start, in.End).Scan(&s.TotalRevenueCents, &s.TotalOrders, &s.AverageOrderValueCents, &s.UniqueCustomers)
	if err != nil {
		r.logger.Printf("order repo: stats summary error=%v", err)
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT status, COUNT(*) FROM orders WHERE `+window+` GROUP BY status`, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		s.StatusBreakdown = append(s.StatusBreakdown, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dayRows, err := r.pool.Query(ctx, `
SELECT to_char(created_at, 'YYYY-MM-DD') AS day, COALESCE(SUM(total_cents), 0), COUNT(*)
FROM orders WHERE `+window+`
GROUP BY day ORDER BY day`, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var d DayRevenue
		if err := dayRows.Scan(&d.Day, &d.RevenueCents, &d.Orders); err != nil {
			return nil, err
		}
		s.RevenueByDay = append(s.RevenueByDay, d)
	}
	if err := dayRows.Err(); err != nil {
		return nil, err
	}

	return &s, nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	var result []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
