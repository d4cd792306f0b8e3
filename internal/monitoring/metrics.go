// Package monitoring exposes Prometheus metrics for the temp-mail front-end.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors used by the API client, the domain cache and
// the polling loop.
type Metrics struct {
	registry *prometheus.Registry

	// Remote API calls
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Domain cache
	DomainCacheHits   prometheus.Counter
	DomainCacheMisses prometheus.Counter

	// Sessions
	AddressesGenerated prometheus.Counter
	PollAttemptsTotal  *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_api_requests_total",
				Help: "Total number of requests made to the remote mail API",
			},
			[]string{"endpoint", "status_code"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tempmail_api_request_duration_seconds",
				Help:    "Remote mail API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		DomainCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_domain_cache_hits_total",
			Help: "Domain list lookups served from the cache",
		}),

		DomainCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_domain_cache_misses_total",
			Help: "Domain list lookups that went to the remote API",
		}),

		AddressesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "tempmail_addresses_generated_total",
			Help: "Temporary addresses allocated",
		}),

		PollAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempmail_poll_attempts_total",
				Help: "Polling attempts by outcome",
			},
			[]string{"outcome"},
		),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tempmail_active_sessions",
			Help: "Web sessions currently held in memory",
		}),
	}
}

// ObserveRequest records one remote API call. status is 0 when the request
// never produced an HTTP response.
func (m *Metrics) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.APIRequestsTotal.WithLabelValues(endpoint, code).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveCache records a domain cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.DomainCacheHits.Inc()
		return
	}
	m.DomainCacheMisses.Inc()
}

// ObservePollAttempt records the outcome of one polling attempt:
// "found", "empty" or "exhausted".
func (m *Metrics) ObservePollAttempt(outcome string) {
	if m == nil {
		return
	}
	m.PollAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAddressGenerated counts a successful allocation.
func (m *Metrics) ObserveAddressGenerated() {
	if m == nil {
		return
	}
	m.AddressesGenerated.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler that serves the metrics in the Prometheus
// text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
