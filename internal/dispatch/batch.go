// Package dispatch sends numbered result lists whose items are prepared concurrently.
package dispatch

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/infra/metrics"
	"media-courier-bot/internal/infra/worker"
)

const (
	DefaultPrepareConcurrency = 5
	DefaultSendDelay          = 400 * time.Millisecond
)

// Renderer turns an item into a caption and, optionally, auxiliary media.
// Media may hit the network; a failure there downgrades the item to text.
type Renderer[T any] struct {
	Caption func(index int, item T) string
	Media   func(ctx context.Context, index int, item T) ([]byte, error)
}

// Report counts how items went out.
type Report struct {
	WithMedia int
	TextOnly  int
	Failed    int
}

type Dispatcher struct {
	transport adapter.Transport
	throttle  *worker.Throttle
	prepare   int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration)
	log       *zerolog.Logger
}

type Config struct {
	PrepareConcurrency int
	SendDelay          time.Duration
}

func NewDispatcher(t adapter.Transport, throttle *worker.Throttle, cfg Config, logger *zerolog.Logger) *Dispatcher {
	if cfg.PrepareConcurrency <= 0 {
		cfg.PrepareConcurrency = DefaultPrepareConcurrency
	}
	if cfg.SendDelay < 0 {
		cfg.SendDelay = 0
	}
	l := logger.With().Str("component", "Dispatcher").Logger()
	return &Dispatcher{
		transport: t,
		throttle:  throttle,
		prepare:   cfg.PrepareConcurrency,
		delay:     cfg.SendDelay,
		sleep:     sleepCtx,
		log:       &l,
	}
}

type prepared struct {
	index   int
	caption string
	media   []byte
	err     error
}

// SendOrderedBatch prepares every item concurrently and then sends them one by
// one in input order, pausing between messages.
func SendOrderedBatch[T any](ctx context.Context, d *Dispatcher, conv int64, items []T, r Renderer[T]) Report {
	results := make(chan prepared, len(items))

	var g errgroup.Group
	g.SetLimit(d.prepare)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			p := prepared{index: i, caption: r.Caption(i, item)}
			if r.Media != nil {
				p.media, p.err = r.Media(ctx, i, item)
			}
			results <- p
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	ordered := make([]prepared, 0, len(items))
	for p := range results {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].index < ordered[b].index })

	var rep Report
	for n, p := range ordered {
		if ctx.Err() != nil {
			rep.Failed += len(ordered) - n
			break
		}
		if n > 0 {
			d.sleep(ctx, d.delay)
		}
		switch d.sendOne(ctx, conv, p) {
		case "image":
			rep.WithMedia++
		case "text":
			rep.TextOnly++
		default:
			rep.Failed++
		}
	}
	return rep
}

func (d *Dispatcher) sendOne(ctx context.Context, conv int64, p prepared) string {
	result := "failed"
	_ = d.throttle.Do(ctx, func(ctx context.Context) error {
		if p.err != nil {
			d.log.Debug().Err(p.err).Int("index", p.index).Msg("media preparation failed, sending text")
		} else if len(p.media) > 0 {
			_, err := d.transport.SendImage(ctx, conv, p.media, p.caption)
			if err == nil {
				result = "image"
				return nil
			}
			d.log.Debug().Err(err).Int("index", p.index).Msg("image send failed, falling back to text")
		}
		if _, err := d.transport.SendText(ctx, conv, p.caption); err != nil {
			d.log.Warn().Err(err).Int("index", p.index).Msg("batch item send failed")
			return err
		}
		result = "text"
		return nil
	})
	metrics.IncBatchItem(result)
	return result
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
