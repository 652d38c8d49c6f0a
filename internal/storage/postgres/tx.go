package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"token-lifecycle-monitor/internal/storage"
)

// Transactor implements storage.Transactor with a database transaction per unit of work.
type Transactor struct {
	pool *Pool
}

// NewTransactor creates a new Transactor.
func NewTransactor(pool *Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Compile-time interface check.
var _ storage.Transactor = (*Transactor)(nil)

// RunInTx runs fn inside a transaction. The transaction is rolled back if fn
// returns an error or panics, and committed otherwise.
func (t *Transactor) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(ctx, &TokenStore{db: tx}, &MarketSampleStore{db: tx})
	})
}
