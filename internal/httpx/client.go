package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Common errors.
var (
	ErrNotFound     = errors.New("httpx: resource not found")
	ErrForbidden    = errors.New("httpx: access forbidden")
	ErrUnauthorized = errors.New("httpx: unauthorized")
	ErrServerError  = errors.New("httpx: server error")
)

// retryableStatus holds the server-side codes that get automatic retries.
// Other statuses, 4xx included, are returned to the caller as-is.
var retryableStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Options configures the HTTP client.
type Options struct {
	// Timeout for individual requests.
	// Default: 300s
	Timeout time.Duration

	// RetryAttempts is the maximum number of retry attempts on a
	// retryable server status.
	// Default: 3
	RetryAttempts int

	// RetryBackoff is the initial backoff duration, doubled per attempt.
	// Default: 1s
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 30s
	RetryMaxBackoff time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:         300 * time.Second,
		RetryAttempts:   3,
		RetryBackoff:    time.Second,
		RetryMaxBackoff: 30 * time.Second,
	}
}

// Response is a streamed reply. ContentLength is -1 when the server did
// not declare a size.
type Response struct {
	Body          io.ReadCloser
	ContentLength int64
}

// Client is an HTTP client that retries transient server errors. It is
// shared by the catalog search and every raster download.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new client with the given options. Zero fields are
// filled from DefaultOptions.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = def.RetryAttempts
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = def.RetryBackoff
	}
	if opts.RetryMaxBackoff == 0 {
		opts.RetryMaxBackoff = def.RetryMaxBackoff
	}

	return &Client{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// NewClientWith wraps an existing *http.Client. Used by tests with
// httptest servers.
func NewClientWith(hc *http.Client, opts Options) *Client {
	c := NewClient(opts)
	c.client = hc
	return c
}

// Get performs a GET request, retrying retryable server statuses.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpx: create request: %w", err)
		}
		if c.opts.UserAgent != "" {
			req.Header.Set("User-Agent", c.opts.UserAgent)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Connection-level failures belong to the caller's retry loop.
			return nil, fmt.Errorf("httpx: do request: %w", err)
		}

		if retryableStatus[resp.StatusCode] {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %d %s", ErrServerError, resp.StatusCode, resp.Status)
			continue
		}

		if err := checkStatusCode(resp.StatusCode); err != nil {
			resp.Body.Close()
			return nil, err
		}

		return &Response{Body: resp.Body, ContentLength: resp.ContentLength}, nil
	}

	return nil, fmt.Errorf("httpx: get failed after %d attempts: %w", c.opts.RetryAttempts+1, lastErr)
}

// PostJSON posts a JSON body and decodes a JSON reply into out, retrying
// retryable server statuses.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("httpx: encode body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("httpx: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.opts.UserAgent != "" {
			req.Header.Set("User-Agent", c.opts.UserAgent)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("httpx: do request: %w", err)
		}

		if retryableStatus[resp.StatusCode] {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %d %s", ErrServerError, resp.StatusCode, resp.Status)
			continue
		}

		if err := checkStatusCode(resp.StatusCode); err != nil {
			resp.Body.Close()
			return err
		}

		decErr := json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if decErr != nil {
			return fmt.Errorf("httpx: decode reply: %w", decErr)
		}
		return nil
	}

	return fmt.Errorf("httpx: post failed after %d attempts: %w", c.opts.RetryAttempts+1, lastErr)
}

// backoff waits for an exponentially increasing duration.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	t := time.NewTimer(backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("httpx: unexpected status code: %d", code)
	}
}
