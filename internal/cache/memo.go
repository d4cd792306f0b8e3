// Package cache provides a time-boxed memoization wrapper for a single
// expensive read.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader produces a fresh value.
type Loader[T any] func(ctx context.Context) (T, error)

// Memo caches the result of a Loader for a fixed window measured from the
// successful load. Errors are never cached. Concurrent misses share one
// load.
type Memo[T any] struct {
	load  Loader[T]
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu        sync.RWMutex
	value     T
	fetchedAt time.Time
	valid     bool

	onLookup func(hit bool)
}

// Option configures a Memo.
type Option func(*options)

type options struct {
	now      func() time.Time
	onLookup func(hit bool)
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLookupHook is called once per Get with whether it was served from
// the cache.
func WithLookupHook(fn func(hit bool)) Option {
	return func(o *options) {
		o.onLookup = fn
	}
}

// NewMemo wraps load with a cache window of ttl.
func NewMemo[T any](ttl time.Duration, load Loader[T], opts ...Option) *Memo[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memo[T]{
		load:     load,
		ttl:      ttl,
		now:      o.now,
		onLookup: o.onLookup,
	}
}

// Get returns the cached value while it is fresh, otherwise loads it.
func (m *Memo[T]) Get(ctx context.Context) (T, error) {
	if v, ok := m.cached(); ok {
		m.lookup(true)
		return v, nil
	}
	m.lookup(false)

	ch := m.group.DoChan("load", func() (interface{}, error) {
		// Another caller may have filled the entry while we queued.
		if v, ok := m.cached(); ok {
			return v, nil
		}
		// Load detached from the caller's cancellation.
		v, err := m.load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		m.mu.Lock()
		m.value = v
		m.fetchedAt = m.now()
		m.valid = true
		m.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Invalidate drops the cached value.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	m.value = zero
	m.valid = false
}

// FetchedAt returns when the cached value was loaded and whether one is held.
func (m *Memo[T]) FetchedAt() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchedAt, m.valid
}

func (m *Memo[T]) cached() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.valid || m.now().Sub(m.fetchedAt) >= m.ttl {
		var zero T
		return zero, false
	}
	return m.value, true
}

func (m *Memo[T]) lookup(hit bool) {
	if m.onLookup != nil {
		m.onLookup(hit)
	}
}
