package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	db querier
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{db: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	id, token_address, pair_address, chain, symbol, discovered_at,
	initial_holder_count, is_honeypot, buy_tax, sell_tax,
	status, death_at, death_reason
`

// Exists reports whether a token with the given address is already known.
func (s *TokenStore) Exists(ctx context.Context, address string) (bool, error) {
	if address == "" {
		return false, storage.ErrInvalidInput
	}

	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM tokens WHERE token_address = $1)
	`, address).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token exists: %w", err)
	}
	return exists, nil
}

// Insert adds a new token and sets its ID. Returns ErrDuplicateKey if address exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.Address == "" || !t.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			token_address, pair_address, chain, symbol, discovered_at,
			initial_holder_count, is_honeypot, buy_tax, sell_tax,
			status, death_at, death_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	var deathReason *string
	if t.DeathReason != nil {
		r := string(*t.DeathReason)
		deathReason = &r
	}

	err := s.db.QueryRow(ctx, query,
		t.Address,
		t.PairAddress,
		t.Chain,
		t.Symbol,
		t.DiscoveredAt,
		t.InitialHolderCount,
		t.IsHoneypot,
		t.BuyTax,
		t.SellTax,
		string(t.Status),
		t.DeathAt,
		deathReason,
	).Scan(&t.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByAddress retrieves a token by address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_address = $1`

	t, err := scanToken(s.db.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return t, nil
}

// ListMonitoring retrieves all tokens with status monitoring, ordered by ID ASC.
func (s *TokenStore) ListMonitoring(ctx context.Context) ([]*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE status = $1 ORDER BY id ASC`

	rows, err := s.db.Query(ctx, query, string(domain.StatusMonitoring))
	if err != nil {
		return nil, fmt.Errorf("list monitoring tokens: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ListAll retrieves every token, ordered by ID ASC.
func (s *TokenStore) ListAll(ctx context.Context) ([]*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens ORDER BY id ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// MarkDead transitions a monitoring token to dead. No-op if the token is already dead.
// Returns ErrNotFound if no token has the given ID.
func (s *TokenStore) MarkDead(ctx context.Context, tokenID int64, deathAt time.Time, reason domain.DeathReason) error {
	if !reason.IsValid() {
		return storage.ErrInvalidInput
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE tokens
		SET status = $2, death_at = $3, death_reason = $4
		WHERE id = $1 AND status = $5
	`, tokenID, string(domain.StatusDead), deathAt, string(reason), string(domain.StatusMonitoring))
	if err != nil {
		return fmt.Errorf("mark token dead: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: either already dead or unknown.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tokens WHERE id = $1)`, tokenID).Scan(&exists); err != nil {
		return fmt.Errorf("check token id: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of tokens per status.
func (s *TokenStore) CountByStatus(ctx context.Context) (map[domain.TokenStatus]int, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM tokens GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tokens by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TokenStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.TokenStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// scanToken scans a single row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	var status string
	var deathReason *string
	var buyTax, sellTax decimal.NullDecimal

	err := row.Scan(
		&t.ID,
		&t.Address,
		&t.PairAddress,
		&t.Chain,
		&t.Symbol,
		&t.DiscoveredAt,
		&t.InitialHolderCount,
		&t.IsHoneypot,
		&buyTax,
		&sellTax,
		&status,
		&t.DeathAt,
		&deathReason,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TokenStatus(status)
	if deathReason != nil {
		r := domain.DeathReason(*deathReason)
		t.DeathReason = &r
	}
	if buyTax.Valid {
		t.BuyTax = &buyTax.Decimal
	}
	if sellTax.Valid {
		t.SellTax = &sellTax.Decimal
	}
	return &t, nil
}

// scanTokens scans multiple rows into a slice of Token.
func scanTokens(rows pgx.Rows) ([]*domain.Token, error) {
	var tokens []*domain.Token

	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}
