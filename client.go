package tempmail

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tempmailkit/tempmail-go/internal/api"
	"github.com/tempmailkit/tempmail-go/internal/cache"
	"github.com/tempmailkit/tempmail-go/internal/monitoring"
)

// Client talks to the remote disposable-mail API. It is safe for concurrent
// use and is normally shared by every session of a process.
type Client struct {
	apiClient *api.Client
	domains   *cache.Memo[[]Domain]
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(baseURL string, cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithLogger(cfg.logger.Named("api")),
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.retries > 0 {
		apiOpts = append(apiOpts, api.WithRetries(cfg.retries))
	}
	if cfg.retryDelay > 0 {
		apiOpts = append(apiOpts, api.WithRetryDelay(cfg.retryDelay))
	}
	if len(cfg.retryOn) > 0 {
		apiOpts = append(apiOpts, api.WithRetryOn(cfg.retryOn))
	}
	if cfg.rateLimit > 0 {
		apiOpts = append(apiOpts, api.WithRateLimit(cfg.rateLimit))
	}
	if cfg.metrics != nil {
		apiOpts = append(apiOpts, api.WithObserver(cfg.metrics))
	}
	return api.New(baseURL, apiOpts...)
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		timeout:        api.DefaultTimeout,
		domainCacheTTL: DefaultDomainCacheTTL,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	apiClient, err := buildAPIClient(baseURL, cfg)
	if err != nil {
		return nil, wrapError(err)
	}

	c := &Client{
		apiClient: apiClient,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
	}

	memoOpts := []cache.Option{cache.WithLookupHook(c.metrics.ObserveCache)}
	if cfg.clock != nil {
		memoOpts = append(memoOpts, cache.WithClock(cfg.clock))
	}
	c.domains = cache.NewMemo(cfg.domainCacheTTL, c.fetchDomains, memoOpts...)

	return c, nil
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.apiClient.BaseURL()
}

// ListDomains returns the domains accepted for new addresses. A successful
// result is reused for the domain cache TTL; failures are not cached.
func (c *Client) ListDomains(ctx context.Context) ([]Domain, error) {
	domains, err := c.domains.Get(ctx)
	if err != nil {
		return nil, wrapError(err)
	}
	return slices.Clone(domains), nil
}

// RefreshDomains drops the cached domain list.
func (c *Client) RefreshDomains() {
	c.domains.Invalidate()
}

// DomainsFetchedAt returns when the cached domain list was loaded.
func (c *Client) DomainsFetchedAt() (time.Time, bool) {
	return c.domains.FetchedAt()
}

func (c *Client) fetchDomains(ctx context.Context) ([]Domain, error) {
	domains, err := c.apiClient.ListDomains(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched domains", zap.Int("count", len(domains)))
	return domains, nil
}

// GenerateEmail asks the remote service for a mailbox named localPart on
// domain and returns the full address. localPart is sent as given; it is
// the caller's job to validate it.
func (c *Client) GenerateEmail(ctx context.Context, domain, localPart string) (string, error) {
	address, err := c.apiClient.CreateEmail(ctx, domain, localPart)
	if err != nil {
		return "", wrapError(err)
	}
	c.metrics.ObserveAddressGenerated()
	c.logger.Info("generated address", zap.String("address", address))
	return address, nil
}

// CheckMessages returns the messages currently held for address, possibly
// none.
func (c *Client) CheckMessages(ctx context.Context, address string) ([]Message, error) {
	if address == "" {
		return nil, ErrNoAddress
	}
	messages, err := c.apiClient.ListMessages(ctx, address)
	if err != nil {
		return nil, wrapError(err)
	}
	return messages, nil
}

// Metrics returns the collectors passed with WithMetrics, or nil.
func (c *Client) Metrics() *monitoring.Metrics {
	return c.metrics
}

// PreferredDomain picks the domain to preselect: the domain of address when
// it is listed, otherwise the first domain. It returns "" for an empty list.
func PreferredDomain(domains []Domain, address string) string {
	if len(domains) == 0 {
		return ""
	}
	if at := strings.LastIndexByte(address, '@'); at >= 0 {
		current := address[at+1:]
		for _, d := range domains {
			if d.Name == current {
				return current
			}
		}
	}
	return domains[0].Name
}
