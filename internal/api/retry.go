package api

import (
	"context"
	"net/http"
	"time"
)

// DefaultRetryOn lists the statuses repeated when retries are enabled: the
// answers a proxy in front of the mail API gives while the backend is away.
var DefaultRetryOn = []int{
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// retryPolicy repeats a failed call up to retries times, pausing a fixed
// delay before each repeat. Zero retries means every call is made once.
type retryPolicy struct {
	retries int
	delay   time.Duration
	on      map[int]struct{}
}

func newRetryPolicy(retries int, delay time.Duration, codes []int) retryPolicy {
	if retries < 0 {
		retries = DefaultMaxRetries
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	if len(codes) == 0 {
		codes = DefaultRetryOn
	}
	on := make(map[int]struct{}, len(codes))
	for _, code := range codes {
		on[code] = struct{}{}
	}
	return retryPolicy{retries: retries, delay: delay, on: on}
}

// next reports whether a call that failed on the zero-based attempt should
// be repeated. status 0 means no response was received.
func (p retryPolicy) next(attempt, status int) bool {
	if attempt >= p.retries {
		return false
	}
	if status == 0 {
		return true
	}
	_, ok := p.on[status]
	return ok
}

// pause waits the retry delay, or returns ctx.Err() if ctx ends first.
func (p retryPolicy) pause(ctx context.Context) error {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
