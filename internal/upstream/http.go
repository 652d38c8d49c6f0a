package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"token-lifecycle-monitor/internal/observability"
)

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 512

// GetJSON performs a GET request and decodes a JSON response into out.
// Transport failures, non-2xx statuses and malformed bodies are wrapped so that
// errors.Is matches ErrUnavailable, ErrUnauthorized or ErrNoRecord.
func GetJSON(ctx context.Context, client *http.Client, source, url string, header http.Header, out interface{}) error {
	start := time.Now()
	err := getJSON(ctx, client, source, url, header, out)
	observability.RecordUpstreamCall(source, Result(err), time.Since(start))
	return err
}

func getJSON(ctx context.Context, client *http.Client, source, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http request: %w: %w", source, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Source: source, Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty response: %w", source, ErrUnavailable)
		}
		return fmt.Errorf("%s: decode response: %w: %w", source, ErrUnavailable, err)
	}
	return nil
}
