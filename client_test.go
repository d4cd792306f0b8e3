package tempmail

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tempmailkit/tempmail-go/internal/monitoring"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("New() error = %v, want ErrMissingBaseURL", err)
	}
}

func TestNew_TrimsBaseURL(t *testing.T) {
	c, err := New("https://mail.example.com/api/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.BaseURL(); got != "https://mail.example.com/api" {
		t.Errorf("BaseURL() = %q, want https://mail.example.com/api", got)
	}
}

func TestClient_ListDomains(t *testing.T) {
	m := newMockAPI(t)
	c := m.client()

	domains, err := c.ListDomains(context.Background())
	if err != nil {
		t.Fatalf("ListDomains() error = %v", err)
	}
	if got := DomainNames(domains); len(got) != 2 || got[0] != "example.com" || got[1] != "mail.test" {
		t.Errorf("DomainNames() = %v, want [example.com mail.test]", got)
	}
}

func TestClient_ListDomains_CachedWithinWindow(t *testing.T) {
	m := newMockAPI(t)
	now := time.Unix(1_700_000_000, 0)
	metrics := monitoring.NewMetrics()
	c := m.client(withClock(func() time.Time { return now }), WithMetrics(metrics))
	ctx := context.Background()

	first, err := c.ListDomains(ctx)
	if err != nil {
		t.Fatalf("ListDomains() error = %v", err)
	}
	now = now.Add(59 * time.Minute)
	second, err := c.ListDomains(ctx)
	if err != nil {
		t.Fatalf("ListDomains() error = %v", err)
	}

	if got := m.count("domains"); got != 1 {
		t.Errorf("domains calls = %d, want 1", got)
	}
	if len(first) != len(second) || first[0] != second[0] || first[1] != second[1] {
		t.Errorf("cached result %v differs from first fetch %v", second, first)
	}
	if got := testutil.ToFloat64(metrics.DomainCacheHits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}

	// Mutating a returned slice must not leak into the cache.
	second[0].Name = "tampered"
	third, _ := c.ListDomains(ctx)
	if third[0].Name != "example.com" {
		t.Errorf("cache was mutated through a returned slice: %v", third)
	}
}

func TestClient_ListDomains_RefetchAfterExpiry(t *testing.T) {
	m := newMockAPI(t)
	now := time.Unix(1_700_000_000, 0)
	c := m.client(withClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := c.ListDomains(ctx); err != nil {
		t.Fatalf("ListDomains() error = %v", err)
	}
	m.set(func(m *mockAPI) { m.domains = []Domain{{Name: "new.test"}} })
	now = now.Add(time.Hour + time.Second)

	domains, err := c.ListDomains(ctx)
	if err != nil {
		t.Fatalf("ListDomains() error = %v", err)
	}
	if got := m.count("domains"); got != 2 {
		t.Errorf("domains calls = %d, want 2", got)
	}
	if len(domains) != 1 || domains[0].Name != "new.test" {
		t.Errorf("ListDomains() = %v, want [new.test]", domains)
	}
}

func TestClient_ListDomains_FailureNotCached(t *testing.T) {
	m := newMockAPI(t)
	m.set(func(m *mockAPI) { m.domainsStatus = http.StatusServiceUnavailable })
	c := m.client()
	ctx := context.Background()

	_, err := c.ListDomains(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ListDomains() error = %v, want APIError 503", err)
	}
	if apiErr.Message != "unavailable" {
		t.Errorf("Message = %q, want unavailable", apiErr.Message)
	}

	m.set(func(m *mockAPI) { m.domainsStatus = 0 })
	if _, err := c.ListDomains(ctx); err != nil {
		t.Fatalf("ListDomains() after recovery error = %v", err)
	}
	if got := m.count("domains"); got != 2 {
		t.Errorf("domains calls = %d, want 2", got)
	}
}

func TestClient_GenerateEmail(t *testing.T) {
	m := newMockAPI(t)
	c := m.client()

	address, err := c.GenerateEmail(context.Background(), "example.com", "john_doe")
	if err != nil {
		t.Fatalf("GenerateEmail() error = %v", err)
	}
	if address != "john_doe@example.com" {
		t.Errorf("GenerateEmail() = %q, want john_doe@example.com", address)
	}
	req := m.lastCreate()
	if req.Domain != "example.com" || req.Name != "john_doe" || req.Token != "" {
		t.Errorf("request body = %+v", req)
	}
}

func TestClient_GenerateEmail_ServerError(t *testing.T) {
	m := newMockAPI(t)
	m.set(func(m *mockAPI) { m.createStatus = http.StatusInternalServerError })
	c := m.client()

	address, err := c.GenerateEmail(context.Background(), "example.com", "john")
	if address != "" {
		t.Errorf("GenerateEmail() = %q, want empty", address)
	}
	if !IsRemoteFailure(err) {
		t.Errorf("GenerateEmail() error = %v, want remote failure", err)
	}
}

func TestClient_CheckMessages(t *testing.T) {
	m := newMockAPI(t)
	m.script(mail("Welcome"))
	c := m.client()

	messages, err := c.CheckMessages(context.Background(), "john@example.com")
	if err != nil {
		t.Fatalf("CheckMessages() error = %v", err)
	}
	if len(messages) != 1 || messages[0].Subject != "Welcome" {
		t.Errorf("CheckMessages() = %+v", messages)
	}
	if sender := messages[0].Sender(); sender == nil || sender.Address != "alice@example.org" {
		t.Errorf("Sender() = %v, want alice@example.org", sender)
	}
}

func TestClient_CheckMessages_NoAddress(t *testing.T) {
	m := newMockAPI(t)
	c := m.client()

	if _, err := c.CheckMessages(context.Background(), ""); !errors.Is(err, ErrNoAddress) {
		t.Errorf("CheckMessages(\"\") error = %v, want ErrNoAddress", err)
	}
	if got := m.count("messages"); got != 0 {
		t.Errorf("messages calls = %d, want 0", got)
	}
}

func TestClient_CheckMessages_NetworkError(t *testing.T) {
	m := newMockAPI(t)
	c := m.client(WithTimeout(time.Second))
	m.server.Close()

	_, err := c.CheckMessages(context.Background(), "john@example.com")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("CheckMessages() error = %v, want NetworkError", err)
	}
}

func TestPreferredDomain(t *testing.T) {
	domains := []Domain{{Name: "a.test"}, {Name: "b.test"}}
	tests := []struct {
		name    string
		domains []Domain
		address string
		want    string
	}{
		{"no address", domains, "", "a.test"},
		{"listed domain", domains, "x@b.test", "b.test"},
		{"unlisted domain", domains, "x@c.test", "a.test"},
		{"no domains", nil, "x@b.test", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreferredDomain(tt.domains, tt.address); got != tt.want {
				t.Errorf("PreferredDomain() = %q, want %q", got, tt.want)
			}
		})
	}
}
