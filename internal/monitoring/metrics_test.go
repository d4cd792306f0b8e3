package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest("domains", 200, 10*time.Millisecond)
	m.ObserveRequest("domains", 200, 10*time.Millisecond)
	m.ObserveRequest("messages", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("domains", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("messages", "error")))
}

func TestMetrics_ObserveCache(t *testing.T) {
	m := NewMetrics()

	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DomainCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DomainCacheMisses))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("domains", 200, time.Second)
		m.ObserveCache(true)
		m.ObservePollAttempt("found")
		m.ObserveAddressGenerated()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObservePollAttempt("empty")
	m.ObserveAddressGenerated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `tempmail_poll_attempts_total{outcome="empty"} 1`))
	assert.True(t, strings.Contains(body, "tempmail_addresses_generated_total 1"))
}
