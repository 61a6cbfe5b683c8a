package worker

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"media-courier-bot/internal/infra/metrics"
)

const DefaultMaxConcurrency = 10

// Throttle caps the number of operations running at once. Waiters are admitted
// in arrival order because the underlying semaphore queues them FIFO.
type Throttle struct {
	name   string
	max    int64
	sem    *semaphore.Weighted
	active atomic.Int64
	peak   atomic.Int64
}

func NewThrottle(name string, max int) *Throttle {
	if max <= 0 {
		max = DefaultMaxConcurrency
	}
	return &Throttle{name: name, max: int64(max), sem: semaphore.NewWeighted(int64(max))}
}

// Do runs op while holding a permit. The permit is released even if op panics.
func (t *Throttle) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := WithPermit(ctx, t, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// WithPermit is Do for operations that return a value.
func WithPermit[T any](ctx context.Context, t *Throttle, op func(ctx context.Context) (T, error)) (T, error) {
	if t == nil {
		return op(ctx)
	}
	start := time.Now()
	if err := t.sem.Acquire(ctx, 1); err != nil {
		var zero T
		return zero, err
	}
	metrics.ObserveThrottleWait(t.name, time.Since(start))

	n := t.active.Add(1)
	t.notePeak(n)
	metrics.SetThrottleInFlight(t.name, n)
	defer func() {
		metrics.SetThrottleInFlight(t.name, t.active.Add(-1))
		t.sem.Release(1)
	}()
	return op(ctx)
}

func (t *Throttle) notePeak(n int64) {
	for {
		p := t.peak.Load()
		if n <= p || t.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (t *Throttle) Max() int      { return int(t.max) }
func (t *Throttle) Active() int64 { return t.active.Load() }
func (t *Throttle) Peak() int64   { return t.peak.Load() }
