// Package upstream holds the error taxonomy and HTTP plumbing shared by the
// discovery feed, security oracle, holder oracle and market snapshot adapters.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable marks a recoverable network, HTTP or decoding failure.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrUnauthorized marks a rejected credential (HTTP 401/403).
	ErrUnauthorized = errors.New("upstream unauthorized")

	// ErrNoRecord marks a successful answer that has no record for the key.
	// Adapters translate it to a nil result.
	ErrNoRecord = errors.New("upstream has no record")
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Source string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Source, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Source, e.Code, e.Body)
}

// Unwrap classifies the status into the upstream taxonomy.
func (e *StatusError) Unwrap() error {
	return ClassifyStatus(e.Code)
}

// ClassifyStatus maps an HTTP status code to a sentinel error, or nil for 2xx.
func ClassifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNoRecord
	default:
		return ErrUnavailable
	}
}

// Retryable reports whether a status code is worth retrying.
func Retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Result returns the metric label for an adapter call outcome.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNoRecord):
		return "missing"
	default:
		return "unavailable"
	}
}
