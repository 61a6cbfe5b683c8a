package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/jobs"
	"media-courier-bot/internal/progress"
)

// ProgressSweeper periodically pushes progress for jobs whose output went quiet
// and merges readings that out-of-process downloaders wrote to the side channel.
type ProgressSweeper struct {
	interval   time.Duration
	stallAfter time.Duration
	registry   *jobs.Registry
	side       *progress.SideChannel
	now        func() time.Time
	log        *zerolog.Logger
}

func NewProgressSweeper(interval time.Duration, registry *jobs.Registry, side *progress.SideChannel, logger *zerolog.Logger) *ProgressSweeper {
	l := logger.With().Str("component", "ProgressSweeper").Logger()
	return &ProgressSweeper{
		interval:   interval,
		stallAfter: interval,
		registry:   registry,
		side:       side,
		now:        time.Now,
		log:        &l,
	}
}

func (w *ProgressSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting progress sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping progress sweeper")
			return ctx.Err()
		case <-ticker.C:
			if n := w.Sweep(ctx); n > 0 {
				w.log.Debug().Int("emitted", n).Msg("stalled jobs refreshed")
			}
		}
	}
}

// Sweep runs one pass and returns how many jobs had a message transmitted.
func (w *ProgressSweeper) Sweep(ctx context.Context) int {
	now := w.now()
	emitted := 0
	for _, j := range w.registry.List() {
		merged := false
		if s, ok := w.side.Lookup(j.SessionID); ok {
			merged = j.MergeSample(s)
		}
		if !merged && now.Sub(j.LastForwarded()) < w.stallAfter {
			continue
		}
		if j.Forward(ctx, now) {
			emitted++
		}
	}
	return emitted
}
