// Package fetch is a small JSON HTTP client shared by the API clients.
// Transport failures are retried exactly once after a short pause; HTTP 429
// and other non-2xx statuses are never retried.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimited is returned when the remote service answers 429.
var ErrRateLimited = errors.New("rate limited by remote service")

// RequestError wraps a transport-level failure (unreachable host, timeout)
// or an unexpected HTTP status.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client issues GET requests and decodes JSON responses.
type Client struct {
	HTTP       *http.Client
	UserAgent  string
	RetryDelay time.Duration
}

// New creates a client with a bounded per-request timeout.
func New(timeout, retryDelay time.Duration, userAgent string) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
		RetryDelay: retryDelay,
	}
}

// GetJSON fetches url and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		// One retry for transient transport failures, unless the caller
		// canceled the request.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-time.After(c.RetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		resp, err = c.get(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &RequestError{URL: url, Err: err}
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", url, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return &RequestError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response from %s: %w", url, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return c.HTTP.Do(req)
}
