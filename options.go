package tempmail

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tempmailkit/tempmail-go/internal/delivery"
	"github.com/tempmailkit/tempmail-go/internal/monitoring"
)

const (
	// DefaultDomainCacheTTL is how long a domain list stays fresh.
	DefaultDomainCacheTTL = time.Hour
	// DefaultMaxAttempts is the polling budget per address.
	DefaultMaxAttempts = delivery.DefaultMaxAttempts
	// DefaultPollInterval is the fixed delay between polling attempts.
	DefaultPollInterval = delivery.DefaultInterval
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	httpClient     *http.Client
	timeout        time.Duration
	retries        int
	retryDelay     time.Duration
	retryOn        []int
	rateLimit      float64
	domainCacheTTL time.Duration
	logger         *zap.Logger
	metrics        *monitoring.Metrics
	clock          func() time.Time
}

// sessionConfig holds configuration for a session.
type sessionConfig struct {
	id           string
	address      string
	maxAttempts  int
	pollInterval time.Duration
	nameLength   int
	notifier     Notifier
	logger       *zap.Logger
}

// Option configures the client.
type Option func(*clientConfig)

// SessionOption configures a session.
type SessionOption func(*sessionConfig)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request HTTP timeout.
// Default: 10 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for API calls.
// Default: 0 (a failed call is reported once)
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryDelay sets the fixed pause before each retry.
// Default: 1 second
func WithRetryDelay(delay time.Duration) Option {
	return func(c *clientConfig) {
		c.retryDelay = delay
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [429, 502, 503, 504]
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the cap.
func WithRateLimit(perSecond float64) Option {
	return func(c *clientConfig) {
		c.rateLimit = perSecond
	}
}

// WithDomainCacheTTL sets how long a fetched domain list is reused.
// Default: 1 hour
func WithDomainCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.domainCacheTTL = ttl
	}
}

// WithLogger sets the logger used by the client.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetrics records API calls and cache lookups.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *clientConfig) {
		c.metrics = m
	}
}

// withClock replaces time.Now for the domain cache.
func withClock(now func() time.Time) Option {
	return func(c *clientConfig) {
		c.clock = now
	}
}

// WithSessionID sets the session identifier. Default: a random UUID.
func WithSessionID(id string) SessionOption {
	return func(c *sessionConfig) {
		c.id = id
	}
}

// WithAddress starts the session on an address allocated earlier, with
// polling idle.
func WithAddress(address string) SessionOption {
	return func(c *sessionConfig) {
		c.address = address
	}
}

// WithMaxAttempts sets the polling budget per address.
// Default: 6
func WithMaxAttempts(n int) SessionOption {
	return func(c *sessionConfig) {
		c.maxAttempts = n
	}
}

// WithPollInterval sets the delay between polling attempts.
// Default: 5 seconds
func WithPollInterval(interval time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.pollInterval = interval
	}
}

// WithNameLength sets the length of generated local-parts. The value is
// clamped to [MinNameLength, MaxNameLength].
// Default: 6
func WithNameLength(n int) SessionOption {
	return func(c *sessionConfig) {
		c.nameLength = n
	}
}

// WithNotifier sets where user-facing notices go.
func WithNotifier(n Notifier) SessionOption {
	return func(c *sessionConfig) {
		c.notifier = n
	}
}

// WithSessionLogger sets the logger used by the session.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}
