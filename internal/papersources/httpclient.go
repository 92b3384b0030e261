package papersources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// maxResponseBytes caps how much of a provider response body is decoded.
const maxResponseBytes = 10 << 20

// RetryPolicy controls how many times a GET is attempted and how long to wait in between.
// The delay after attempt n (1-based) is BaseDelay * 2^(n-1), capped at MaxDelay.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns 3 attempts with 1s, 2s, 4s... backoff capped at 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// RetrievalFailure is returned by GetJSON once every attempt has failed.
// Cause holds the error of the last attempt.
type RetrievalFailure struct {
	URL      string
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *RetrievalFailure) Error() string {
	return fmt.Sprintf("retrieval of %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Cause)
}

// Unwrap returns the last underlying cause.
func (e *RetrievalFailure) Unwrap() error {
	return e.Cause
}

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source names the provider in errors, e.g. "openalex".
	Source string

	// Timeout bounds every single attempt.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Retry is the retry policy. Zero fields take DefaultRetryPolicy values.
	Retry RetryPolicy

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key").
	APIKeyHeader string
}

// HTTPClient issues rate-limited JSON GET requests and retries failures with
// exponential backoff. It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig

	// wait sleeps between attempts. Replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewHTTPClient creates a new HTTP client, applying defaults for zero-valued fields.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Source == "" {
		cfg.Source = "upstream"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	def := DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = def.MaxAttempts
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = def.BaseDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = def.MaxDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-ResearchAssistant/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
		wait:        waitForRetry,
	}
}

// GetJSON performs a GET on rawURL with the given query and headers and decodes the JSON
// response into out. Network errors, non-2xx statuses and undecodable bodies are retried
// up to the configured number of attempts. When every attempt fails a *RetrievalFailure
// carrying the last cause is returned. Context cancellation stops retrying immediately.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, query url.Values, headers http.Header, out any) error {
	target, err := buildURL(rawURL, query)
	if err != nil {
		return &RetrievalFailure{URL: rawURL, Attempts: 0, Cause: err}
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.config.Retry.MaxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return &RetrievalFailure{URL: target, Attempts: attempts, Cause: fmt.Errorf("rate limiter wait: %w", err)}
		}

		attempts++
		lastErr = c.getOnce(ctx, target, headers, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &RetrievalFailure{URL: target, Attempts: attempts, Cause: ctx.Err()}
		}

		if attempt < c.config.Retry.MaxAttempts {
			if err := c.wait(ctx, c.config.Retry.Delay(attempt)); err != nil {
				return &RetrievalFailure{URL: target, Attempts: attempts, Cause: err}
			}
		}
	}

	return &RetrievalFailure{URL: target, Attempts: attempts, Cause: lastErr}
}

// getOnce performs a single attempt.
func (c *HTTPClient) getOnce(ctx context.Context, target string, headers http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewExternalAPIError(c.config.Source, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return domain.NewExternalAPIError(c.config.Source, resp.StatusCode, msg, nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return domain.NewExternalAPIError(c.config.Source, resp.StatusCode, "decode response", err)
	}
	return nil
}

func buildURL(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("url must be absolute")
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vals := range query {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
