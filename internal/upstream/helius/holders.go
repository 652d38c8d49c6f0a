// Package helius reads token holder counts from a Helius-compatible DAS
// JSON-RPC endpoint.
package helius

import (
	"context"
	"errors"
	"time"

	"token-lifecycle-monitor/internal/observability"
	"token-lifecycle-monitor/internal/solana"
	"token-lifecycle-monitor/internal/upstream"
)

// Defaults for HolderOracle.
const (
	// DefaultTimeout bounds one HolderCount call including every page.
	DefaultTimeout = 15 * time.Second
	// DefaultPageSize is the largest page getTokenAccounts serves.
	DefaultPageSize = 1000
	// DefaultMaxPages caps the walk; mints with more accounts report unknown.
	DefaultMaxPages = 20
)

// TokenAccountReader is the RPC surface the oracle needs.
type TokenAccountReader interface {
	GetTokenAccounts(ctx context.Context, mint string, page, limit int) (*solana.TokenAccountsPage, error)
}

// HolderOracle reports the number of distinct holders of a token.
type HolderOracle struct {
	rpc      TokenAccountReader
	timeout  time.Duration
	pageSize int
	maxPages int
}

// OracleOption configures HolderOracle.
type OracleOption func(*HolderOracle)

// WithPageSize sets the getTokenAccounts page size.
func WithPageSize(n int) OracleOption {
	return func(o *HolderOracle) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithMaxPages sets how many pages are read before giving up.
func WithMaxPages(n int) OracleOption {
	return func(o *HolderOracle) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

// NewHolderOracle creates a HolderOracle. A non-positive timeout uses DefaultTimeout.
func NewHolderOracle(rpc TokenAccountReader, timeout time.Duration, opts ...OracleOption) *HolderOracle {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	o := &HolderOracle{
		rpc:      rpc,
		timeout:  timeout,
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HolderCount returns the number of distinct owners holding a non-zero
// balance of address. A nil count with a nil error means the figure is
// unknown: the mint has no record or more accounts than maxPages covers.
func (o *HolderOracle) HolderCount(ctx context.Context, address string) (*int64, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	count, err := o.countHolders(ctx, address)
	observability.RecordUpstreamCall("helius", upstream.Result(err), time.Since(start))
	if err != nil {
		if errors.Is(err, upstream.ErrNoRecord) {
			return nil, nil
		}
		return nil, err
	}
	return count, nil
}

func (o *HolderOracle) countHolders(ctx context.Context, mint string) (*int64, error) {
	owners := make(map[string]struct{})
	for page := 1; page <= o.maxPages; page++ {
		resp, err := o.rpc.GetTokenAccounts(ctx, mint, page, o.pageSize)
		if err != nil {
			return nil, err
		}
		var accounts []solana.TokenAccount
		if resp != nil {
			accounts = resp.TokenAccounts
		}
		for _, acc := range accounts {
			if acc.Amount > 0 && acc.Owner != "" {
				owners[acc.Owner] = struct{}{}
			}
		}
		if len(accounts) < o.pageSize {
			count := int64(len(owners))
			return &count, nil
		}
	}
	// Every page was full, so the listing continues past the cap.
	return nil, nil
}
