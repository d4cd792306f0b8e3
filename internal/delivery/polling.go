package delivery

import (
	"context"
	"sync"
	"time"
)

// Attempt performs one polling attempt and reports whether polling is over.
// A non-nil error aborts the run.
type Attempt func(ctx context.Context) (done bool, err error)

// Run drives attempts on the calling goroutine, waiting interval between
// them. It returns nil when an attempt reports done, the attempt's error, or
// the context error if ctx ends during a wait.
func Run(ctx context.Context, interval time.Duration, attempt Attempt) error {
	for {
		done, err := attempt(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := wait(ctx, interval); err != nil {
			return err
		}
	}
}

// Schedule drives attempts as timer tasks. The first attempt fires
// immediately. onExit, if non-nil, is called exactly once with the outcome:
// nil when an attempt reports done, the attempt's error, or context.Canceled
// after stop. stop is idempotent and does not wait for a running attempt.
func Schedule(ctx context.Context, interval time.Duration, attempt Attempt, onExit func(error)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	var (
		mu       sync.Mutex
		timer    *time.Timer
		exitOnce sync.Once
	)
	exit := func(err error) {
		exitOnce.Do(func() {
			cancel()
			if onExit != nil {
				onExit(err)
			}
		})
	}

	var step func()
	step = func() {
		if err := ctx.Err(); err != nil {
			exit(err)
			return
		}
		done, err := attempt(ctx)
		switch {
		case err != nil:
			exit(err)
			return
		case done:
			exit(nil)
			return
		}

		mu.Lock()
		if ctx.Err() == nil {
			timer = time.AfterFunc(interval, step)
			mu.Unlock()
			return
		}
		mu.Unlock()
		exit(ctx.Err())
	}

	mu.Lock()
	timer = time.AfterFunc(0, step)
	mu.Unlock()

	return func() {
		cancel()
		mu.Lock()
		stopped := timer != nil && timer.Stop()
		mu.Unlock()
		if stopped {
			exit(context.Canceled)
		}
	}
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
