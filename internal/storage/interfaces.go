package storage

import (
	"context"
	"time"

	"token-lifecycle-monitor/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Exists reports whether a token with the given address is already known.
	Exists(ctx context.Context, address string) (bool, error)

	// Insert adds a new token and sets its ID. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByAddress retrieves a token by address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Token, error)

	// ListMonitoring retrieves all tokens with status monitoring, ordered by ID ASC.
	ListMonitoring(ctx context.Context) ([]*domain.Token, error)

	// ListAll retrieves every token, ordered by ID ASC.
	ListAll(ctx context.Context) ([]*domain.Token, error)

	// MarkDead transitions a monitoring token to dead. No-op if the token is already dead.
	// Returns ErrNotFound if no token has the given ID.
	MarkDead(ctx context.Context, tokenID int64, deathAt time.Time, reason domain.DeathReason) error

	// CountByStatus returns the number of tokens per status.
	CountByStatus(ctx context.Context) (map[domain.TokenStatus]int, error)
}

// MarketSampleStore provides access to market_data storage. Append-only.
type MarketSampleStore interface {
	// Insert appends a sample and sets its ID.
	Insert(ctx context.Context, s *domain.MarketSample) error

	// GetByTokenID retrieves all samples for a token, ordered by timestamp ASC.
	GetByTokenID(ctx context.Context, tokenID int64) ([]*domain.MarketSample, error)
}

// TxFunc is the body of a unit of work. The stores it receives are bound to the transaction.
type TxFunc func(ctx context.Context, tokens TokenStore, samples MarketSampleStore) error

// Transactor runs a unit of work atomically. Either every write made through the
// provided stores is committed, or none is.
type Transactor interface {
	RunInTx(ctx context.Context, fn TxFunc) error
}
