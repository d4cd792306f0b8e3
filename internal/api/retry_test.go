package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// flakyInbox answers the messages endpoint with the given statuses in turn,
// then with an inbox holding one message.
func flakyInbox(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/email/bob@example.com/messages" {
			t.Errorf("path = %s, want the messages endpoint", r.URL.Path)
		}
		n := int(calls.Add(1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			io.WriteString(w, `{"error":"backend unavailable"}`)
			return
		}
		io.WriteString(w, `[{"from":"a@example.com","subject":"hi","body_text":"x"}]`)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestListMessages_RetriesBadGateway(t *testing.T) {
	server, calls := flakyInbox(t, http.StatusBadGateway)
	client, _ := New(server.URL, WithRetries(1), WithRetryDelay(time.Millisecond))

	messages, err := client.ListMessages(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("len(messages) = %d, want 1", len(messages))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestListMessages_NoRetryByDefault(t *testing.T) {
	server, calls := flakyInbox(t, http.StatusBadGateway)
	client, _ := New(server.URL)

	_, err := client.ListMessages(context.Background(), "bob@example.com")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("ListMessages() error = %v, want 502 APIError", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestListMessages_RetryBudgetSpent(t *testing.T) {
	server, calls := flakyInbox(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	client, _ := New(server.URL, WithRetries(2), WithRetryDelay(time.Millisecond))

	_, err := client.ListMessages(context.Background(), "bob@example.com")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ListMessages() error = %v, want 503 APIError", err)
	}
	if apiErr.Message != "backend unavailable" {
		t.Errorf("Message = %q, want backend unavailable", apiErr.Message)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestListMessages_NotFoundIsNotRetried(t *testing.T) {
	server, calls := flakyInbox(t, http.StatusNotFound)
	client, _ := New(server.URL, WithRetries(3), WithRetryDelay(time.Millisecond))

	if _, err := client.ListMessages(context.Background(), "bob@example.com"); err == nil {
		t.Fatal("ListMessages() error = nil, want error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestListMessages_CancelDuringRetryPause(t *testing.T) {
	server, calls := flakyInbox(t, http.StatusBadGateway)
	client, _ := New(server.URL, WithRetries(1), WithRetryDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.ListMessages(ctx, "bob@example.com")
	if err == nil {
		t.Fatal("ListMessages() error = nil, want the 502")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("ListMessages() took %v, want it to stop with ctx", elapsed)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestRetryPolicy_Next(t *testing.T) {
	p := newRetryPolicy(1, time.Millisecond, nil)

	tests := []struct {
		name    string
		attempt int
		status  int
		want    bool
	}{
		{"transport error", 0, 0, true},
		{"bad gateway", 0, http.StatusBadGateway, true},
		{"rate limited", 0, http.StatusTooManyRequests, true},
		{"server error", 0, http.StatusInternalServerError, false},
		{"bad request", 0, http.StatusBadRequest, false},
		{"budget spent", 1, http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.next(tt.attempt, tt.status); got != tt.want {
				t.Errorf("next(%d, %d) = %v, want %v", tt.attempt, tt.status, got, tt.want)
			}
		})
	}
}

func TestNewRetryPolicy_Defaults(t *testing.T) {
	p := newRetryPolicy(-1, 0, nil)

	if p.retries != DefaultMaxRetries {
		t.Errorf("retries = %d, want %d", p.retries, DefaultMaxRetries)
	}
	if p.delay != DefaultRetryDelay {
		t.Errorf("delay = %v, want %v", p.delay, DefaultRetryDelay)
	}
	if len(p.on) != len(DefaultRetryOn) {
		t.Errorf("len(on) = %d, want %d", len(p.on), len(DefaultRetryOn))
	}
	if p.next(0, 0) {
		t.Error("next() = true with zero retries")
	}
}
