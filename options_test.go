package tempmail

import (
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tempmailkit/tempmail-go/internal/monitoring"
)

func TestDefaultConstants(t *testing.T) {
	if DefaultDomainCacheTTL != time.Hour {
		t.Errorf("DefaultDomainCacheTTL = %v, want 1h", DefaultDomainCacheTTL)
	}
	if DefaultMaxAttempts != 6 {
		t.Errorf("DefaultMaxAttempts = %d, want 6", DefaultMaxAttempts)
	}
	if DefaultPollInterval != 5*time.Second {
		t.Errorf("DefaultPollInterval = %v, want 5s", DefaultPollInterval)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	httpClient := &http.Client{Timeout: 99 * time.Second}
	logger := zap.NewNop()
	metrics := monitoring.NewMetrics()

	for _, opt := range []Option{
		WithHTTPClient(httpClient),
		WithTimeout(3 * time.Second),
		WithRetries(2),
		WithRetryDelay(time.Millisecond),
		WithRetryOn([]int{503}),
		WithRateLimit(4),
		WithDomainCacheTTL(time.Minute),
		WithLogger(logger),
		WithMetrics(metrics),
	} {
		opt(cfg)
	}

	if cfg.httpClient != httpClient {
		t.Error("httpClient was not set")
	}
	if cfg.timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cfg.timeout)
	}
	if cfg.retries != 2 {
		t.Errorf("retries = %d, want 2", cfg.retries)
	}
	if cfg.retryDelay != time.Millisecond {
		t.Errorf("retryDelay = %v, want 1ms", cfg.retryDelay)
	}
	if len(cfg.retryOn) != 1 || cfg.retryOn[0] != 503 {
		t.Errorf("retryOn = %v, want [503]", cfg.retryOn)
	}
	if cfg.rateLimit != 4 {
		t.Errorf("rateLimit = %v, want 4", cfg.rateLimit)
	}
	if cfg.domainCacheTTL != time.Minute {
		t.Errorf("domainCacheTTL = %v, want 1m", cfg.domainCacheTTL)
	}
	if cfg.logger != logger {
		t.Error("logger was not set")
	}
	if cfg.metrics != metrics {
		t.Error("metrics were not set")
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := &sessionConfig{}
	notices := &NoticeLog{}

	for _, opt := range []SessionOption{
		WithSessionID("abc"),
		WithAddress("kept@a.test"),
		WithMaxAttempts(3),
		WithPollInterval(time.Millisecond),
		WithNameLength(12),
		WithNotifier(notices),
	} {
		opt(cfg)
	}

	if cfg.id != "abc" {
		t.Errorf("id = %q, want abc", cfg.id)
	}
	if cfg.address != "kept@a.test" {
		t.Errorf("address = %q, want kept@a.test", cfg.address)
	}
	if cfg.maxAttempts != 3 {
		t.Errorf("maxAttempts = %d, want 3", cfg.maxAttempts)
	}
	if cfg.pollInterval != time.Millisecond {
		t.Errorf("pollInterval = %v, want 1ms", cfg.pollInterval)
	}
	if cfg.nameLength != 12 {
		t.Errorf("nameLength = %d, want 12", cfg.nameLength)
	}
	if cfg.notifier != notices {
		t.Error("notifier was not set")
	}
}
