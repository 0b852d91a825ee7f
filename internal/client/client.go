package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxDelay      = 10 * time.Second
	maxErrorBodyLen      = 512
)

// Config holds client adapter configuration.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// OnRetry is invoked after each failed retriable attempt.
	OnRetry func(attempt uint, err error)
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = defaultMaxDelay
	}
	return c
}

// APIError is a non-2xx response from the upstream service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying. Only 5xx
// responses qualify; a 4xx is a caller error and repeats identically.
func (e *APIError) Transient() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Client wraps outbound HTTP calls with timeout, transient-failure
// classification, and bounded exponential-backoff retry. One adapter serves
// every collaborator; retry logic is never duplicated per target.
type Client struct {
	http *resty.Client
	cfg  Config
}

// New creates a Client for the given base URL.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0) // retry handled here, with classification
	return &Client{http: r, cfg: cfg}
}

// Get issues a GET with bounded retry. Status lookups are naturally
// idempotent, so transient failures are always retried.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, true)
}

// Post issues a POST. Transient failures are retried only when the caller
// marks the request idempotent: blindly repeating a charge is a correctness
// hazard, and that decision belongs to the caller, not the adapter.
func (c *Client) Post(ctx context.Context, path string, body, out any, idempotent bool) error {
	return c.do(ctx, http.MethodPost, path, body, out, idempotent)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, idempotent bool) error {
	attempt := func() error {
		req := c.http.R().SetContext(ctx)
		if body != nil {
			req.SetBody(body)
		}
		if out != nil {
			req.SetResult(out)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			// Transport-level failure (timeout, connection refused): transient.
			return err
		}
		if resp.IsError() {
			apiErr := &APIError{StatusCode: resp.StatusCode(), Body: truncate(resp.String())}
			if apiErr.Transient() {
				return apiErr
			}
			return retry.Unrecoverable(apiErr)
		}
		return nil
	}

	attempts := c.cfg.RetryAttempts
	if !idempotent {
		attempts = 1
	}

	err := retry.Do(
		attempt,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.MaxDelay(c.cfg.MaxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if c.cfg.OnRetry != nil {
				c.cfg.OnRetry(n, err)
			}
		}),
	)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && !apiErr.Transient() {
		return apiErr
	}
	if ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %v", domainErrors.ErrMaxRetriesExceeded, err)
}

func truncate(s string) string {
	if len(s) > maxErrorBodyLen {
		return s[:maxErrorBodyLen]
	}
	return s
}
