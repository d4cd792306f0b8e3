package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds every HTTP call. The remote API gives no
	// guidance, so the client picks one instead of waiting forever.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRetries disables retries.
	DefaultMaxRetries = 0
	// DefaultRetryDelay is the pause before a repeated call.
	DefaultRetryDelay = time.Second

	maxErrorBody = 4 << 10
)

// Observer receives one callback per HTTP attempt. status is 0 when no
// response was received.
type Observer interface {
	ObserveRequest(endpoint string, status int, elapsed time.Duration)
}

// Config holds the API client configuration.
type Config struct {
	// BaseURL is the root of the remote API, e.g. https://mail.example.com/api.
	BaseURL string
	// HTTPClient overrides the default client. Its Timeout is left untouched.
	HTTPClient *http.Client
	// Timeout applies to the default HTTP client. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is the fixed pause before each retry.
	RetryDelay time.Duration
	// RetryOn lists status codes that trigger a retry. Empty means
	// DefaultRetryOn.
	RetryOn []int
	// RateLimit caps requests per second. Zero disables the limit.
	RateLimit float64
	// Observer is notified of every attempt.
	Observer Observer
	// Logger receives debug output. Nil means no logging.
	Logger *zap.Logger
}

// Client is the HTTP API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      retryPolicy
	limiter    *rate.Limiter
	observer   Observer
	logger     *zap.Logger
}

// Option configures the API client.
type Option func(*Config)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRetries sets the number of retries.
func WithRetries(retries int) Option {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithRetryDelay sets the pause before each retry.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = delay
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
func WithRetryOn(statusCodes []int) Option {
	return func(c *Config) {
		c.RetryOn = statusCodes
	}
}

// WithRateLimit caps the request rate.
func WithRateLimit(perSecond float64) Option {
	return func(c *Config) {
		c.RateLimit = perSecond
	}
}

// WithObserver sets the request observer.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// New creates a client for baseURL using functional options.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := Config{BaseURL: baseURL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewClient(cfg)
}

// NewClient creates a client from an explicit configuration.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		retry:      newRetryPolicy(cfg.MaxRetries, cfg.RetryDelay, cfg.RetryOn),
		limiter:    limiter,
		observer:   cfg.Observer,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one API call. body is JSON-encoded when non-nil and the response
// is decoded into result when non-nil. Any non-2xx status is an error.
func (c *Client) Do(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	url := c.baseURL + path
	endpoint := endpointLabel(path)

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return &NetworkError{Err: err, URL: url, Attempt: attempt}
			}
		}

		resp, err := c.send(ctx, endpoint, method, url, payload)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.logger.Debug("api request",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if err != nil {
			if ctx.Err() == nil && c.retry.next(attempt, 0) && c.retry.pause(ctx) == nil {
				continue
			}
			return &NetworkError{Err: err, URL: url, Attempt: attempt}
		}

		if status < 200 || status > 299 {
			apiErr := parseErrorResponse(resp)
			resp.Body.Close()
			if c.retry.next(attempt, status) && c.retry.pause(ctx) == nil {
				continue
			}
			return apiErr
		}

		defer resp.Body.Close()
		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
			}
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, endpoint, method, url string, payload []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.observer != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.observer.ObserveRequest(endpoint, status, time.Since(start))
	}
	return resp, err
}

func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var errResp struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Error != "":
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		case errResp.Message != "":
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
		case len(errResp.Detail) > 0:
			var detail string
			if json.Unmarshal(errResp.Detail, &detail) != nil {
				detail = string(errResp.Detail)
			}
			return &APIError{StatusCode: resp.StatusCode, Message: detail}
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// endpointLabel maps a request path to a bounded metric label.
func endpointLabel(path string) string {
	switch {
	case path == domainsPath:
		return "domains"
	case path == createEmailPath:
		return "create_email"
	case strings.HasPrefix(path, "/email/") && strings.HasSuffix(path, "/messages"):
		return "messages"
	default:
		return "other"
	}
}
