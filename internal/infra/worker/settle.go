package worker

import (
	"context"
	"fmt"
	"sync"
)

const DefaultChunkSize = 5

// Settled is the outcome of one item in an all-settled batch.
type Settled struct {
	Index int
	Err   error
}

// Summary aggregates a batch; Results are flattened in input order.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []Settled
}

// SettleChunked sends items in fixed-size chunks. Items inside a chunk run
// concurrently and a failure never cancels its siblings; chunks run one after
// another. When t is non-nil every send also holds a throttle permit.
func SettleChunked[T any](ctx context.Context, t *Throttle, items []T, chunkSize int, send func(ctx context.Context, item T) error) Summary {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	out := Summary{Results: make([]Settled, 0, len(items))}

	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		results := make([]Settled, end-start)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := settleOne(ctx, t, items[i], send)
				results[i-start] = Settled{Index: i, Err: err}
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			if r.Err != nil {
				out.Failed++
			} else {
				out.Succeeded++
			}
			out.Results = append(out.Results, r)
		}
	}
	return out
}

func settleOne[T any](ctx context.Context, t *Throttle, item T, send func(ctx context.Context, item T) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError{rec}
		}
	}()
	if t == nil {
		return send(ctx, item)
	}
	return t.Do(ctx, func(ctx context.Context) error { return send(ctx, item) })
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("panic in batch item: %v", p.v) }
