package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemo_HitWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var loads atomic.Int32
	m := NewMemo(time.Hour, func(ctx context.Context) ([]string, error) {
		loads.Add(1)
		return []string{"a.test", "b.test"}, nil
	}, WithClock(clock.Now))

	first, err := m.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	second, err := m.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), loads.Load())
}

func TestMemo_ReloadsAfterExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var loads atomic.Int32
	m := NewMemo(time.Hour, func(ctx context.Context) (int32, error) {
		return loads.Add(1), nil
	}, WithClock(clock.Now))

	v, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	clock.Advance(time.Hour)
	v, err = m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestMemo_ErrorsAreNotCached(t *testing.T) {
	var loads atomic.Int32
	m := NewMemo(time.Hour, func(ctx context.Context) (string, error) {
		if loads.Add(1) == 1 {
			return "", errors.New("unavailable")
		}
		return "ok", nil
	})

	_, err := m.Get(context.Background())
	require.Error(t, err)

	v, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), loads.Load())
}

func TestMemo_ConcurrentMissesShareLoad(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	m := NewMemo(time.Hour, func(ctx context.Context) (string, error) {
		loads.Add(1)
		<-release
		return "v", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}

func TestMemo_Invalidate(t *testing.T) {
	var loads atomic.Int32
	m := NewMemo(time.Hour, func(ctx context.Context) (int32, error) {
		return loads.Add(1), nil
	})

	_, _ = m.Get(context.Background())
	_, ok := m.FetchedAt()
	assert.True(t, ok)

	m.Invalidate()
	_, ok = m.FetchedAt()
	assert.False(t, ok)

	v, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestMemo_LookupHook(t *testing.T) {
	var hits, misses int
	m := NewMemo(time.Hour, func(ctx context.Context) (string, error) {
		return "v", nil
	}, WithLookupHook(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))

	_, _ = m.Get(context.Background())
	_, _ = m.Get(context.Background())
	_, _ = m.Get(context.Background())

	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

func TestMemo_CallerContextCanceled(t *testing.T) {
	release := make(chan struct{})
	m := NewMemo(time.Hour, func(ctx context.Context) (string, error) {
		<-release
		return "v", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
