package token

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

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

func (r *postgresRepo) Lookup(ctx context.Context, token string) (*domain.Identity, error) {
	const q = `SELECT user_id, email, is_admin, expires_at FROM api_tokens WHERE token = $1`
	var ident domain.Identity
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, q, token).Scan(&ident.UserID, &ident.Email, &ident.IsAdmin, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("token repo: lookup error=%v", err)
		return nil, err
	}
	if time.Now().After(expiresAt) {
		return nil, domain.ErrNotFound
	}
	return &ident, nil
}
