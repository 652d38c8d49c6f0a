// Package goplus adapts the GoPlus token security API into the security oracle.
package goplus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/upstream"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.gopluslabs.io"
	DefaultChainID = "solana_mainnet"
	DefaultTimeout = 10 * time.Second
)

// Client queries the GoPlus token_security endpoint.
type Client struct {
	baseURL string
	chainID string
	apiKey  string
	client  *http.Client
	timeout time.Duration
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithChainID sets the GoPlus chain identifier.
func WithChainID(id string) ClientOption {
	return func(c *Client) {
		c.chainID = id
	}
}

// WithTimeout bounds a TokenSecurity call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new GoPlus client authenticated with apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		chainID: DefaultChainID,
		apiKey:  apiKey,
		client:  &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// securityResponse is the raw body of token_security.
type securityResponse struct {
	Code    int                     `json:"code"`
	Message string                  `json:"message"`
	Result  map[string]securityJSON `json:"result"`
}

// GoPlus body codes. Any other code is a failure even under HTTP 200.
const (
	codeOK          = 1
	codePartialData = 2
	codeNoInfo      = 2021
)

// authCodes are the body codes GoPlus uses for rejected credentials.
var authCodes = map[int]bool{
	4010: true, // app key does not exist
	4011: true, // signature expired
	4012: true, // wrong signature
	4023: true, // access token not found
}

// APIError is a token_security reply whose body code reports a failure.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("goplus: code %d: %s", e.Code, e.Message)
}

// Unwrap classifies the body code into the upstream taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case authCodes[e.Code]:
		return upstream.ErrUnauthorized
	case e.Code == codeNoInfo:
		return upstream.ErrNoRecord
	default:
		return upstream.ErrUnavailable
	}
}

func checkCode(code int, message string) error {
	if code == codeOK || code == codePartialData {
		return nil
	}
	return &APIError{Code: code, Message: message}
}

type securityJSON struct {
	IsHoneypot upstream.FlexDecimal `json:"is_honeypot"`
	BuyTax     upstream.FlexDecimal `json:"buy_tax"`
	SellTax    upstream.FlexDecimal `json:"sell_tax"`
}

// TokenSecurity returns the security report for address, or nil if GoPlus has
// no entry for it. Absent fields inside an entry read as zero.
func (c *Client) TokenSecurity(ctx context.Context, address string) (*domain.SecurityReport, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("goplus: missing api key: %w", upstream.ErrUnauthorized)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/v1/token_security/%s?contract_addresses=%s",
		c.baseURL, url.PathEscape(c.chainID), url.QueryEscape(address))

	header := http.Header{}
	header.Set("X-API-KEY", c.apiKey)

	var resp securityResponse
	err := upstream.GetJSON(ctx, c.client, "goplus", endpoint, header, &resp)
	if err == nil {
		err = checkCode(resp.Code, resp.Message)
	}
	if err != nil {
		if errors.Is(err, upstream.ErrNoRecord) {
			return nil, nil
		}
		return nil, err
	}

	entry, ok := resp.Result[address]
	if !ok {
		entry, ok = resp.Result[strings.ToLower(address)]
	}
	if !ok {
		return nil, nil
	}

	return &domain.SecurityReport{
		IsHoneypot: !entry.IsHoneypot.OrZero().Equal(decimal.Zero),
		BuyTax:     entry.BuyTax.OrZero(),
		SellTax:    entry.SellTax.OrZero(),
	}, nil
}
