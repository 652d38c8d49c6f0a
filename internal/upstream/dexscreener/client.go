// Package dexscreener adapts the DexScreener public API into the discovery
// feed and market snapshot sources.
package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/upstream"
)

// Default configuration values.
const (
	DefaultBaseURL         = "https://api.dexscreener.com"
	DefaultQuery           = "new"
	DefaultFeedTimeout     = 15 * time.Second
	DefaultSnapshotTimeout = 10 * time.Second
)

// Client reads the DexScreener search and pair endpoints.
type Client struct {
	baseURL         string
	query           string
	client          *http.Client
	feedTimeout     time.Duration
	snapshotTimeout time.Duration
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithQuery sets the search query used for discovery.
func WithQuery(q string) ClientOption {
	return func(c *Client) {
		c.query = q
	}
}

// WithFeedTimeout bounds a LatestPairs call.
func WithFeedTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.feedTimeout = d
	}
}

// WithSnapshotTimeout bounds a PairSnapshot call.
func WithSnapshotTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.snapshotTimeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new DexScreener client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		query:           DefaultQuery,
		client:          &http.Client{},
		feedTimeout:     DefaultFeedTimeout,
		snapshotTimeout: DefaultSnapshotTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestPairs returns one page of recently listed pairs.
func (c *Client) LatestPairs(ctx context.Context) ([]domain.PairCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.feedTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, url.QueryEscape(c.query))

	var resp searchResponse
	err := upstream.GetJSON(ctx, c.client, "dexscreener_feed", endpoint, nil, &resp)
	if err != nil {
		if errors.Is(err, upstream.ErrNoRecord) {
			return nil, nil
		}
		return nil, err
	}

	candidates := make([]domain.PairCandidate, 0, len(resp.Pairs))
	for _, p := range resp.Pairs {
		candidates = append(candidates, p.candidate())
	}
	return candidates, nil
}

// PairSnapshot returns the current market state of one pair, or nil if the
// pair is unknown to DexScreener.
func (c *Client) PairSnapshot(ctx context.Context, chain, pairAddress string) (*domain.MarketSnapshot, error) {
	if chain == "" || pairAddress == "" {
		return nil, fmt.Errorf("dexscreener: empty chain or pair address: %w", upstream.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.snapshotTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/latest/dex/pairs/%s/%s",
		c.baseURL, url.PathEscape(chain), url.PathEscape(pairAddress))

	var resp pairsResponse
	err := upstream.GetJSON(ctx, c.client, "dexscreener_snapshot", endpoint, nil, &resp)
	if err != nil {
		if errors.Is(err, upstream.ErrNoRecord) {
			return nil, nil
		}
		return nil, err
	}

	p := resp.Pair
	if p == nil && len(resp.Pairs) > 0 {
		p = &resp.Pairs[0]
	}
	if p == nil {
		return nil, nil
	}
	return p.snapshot(pairAddress), nil
}
