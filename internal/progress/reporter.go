package progress

import (
	"context"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/infra/metrics"
)

const (
	DefaultInterval     = 3 * time.Second
	DefaultReplaceDelay = 300 * time.Millisecond

	// Forced updates closer than this to the last sent percentage are dropped.
	minForcedDelta = 1.0
)

// Reporter keeps one live status message per job in a conversation.
// It is safe for concurrent use; transport failures are logged and swallowed.
type Reporter struct {
	mu sync.Mutex

	transport      adapter.Transport
	conversationID int64
	interval       time.Duration
	replaceDelay   time.Duration
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration)
	log            *zerolog.Logger

	title     string
	startedAt time.Time
	live      *adapter.MessageHandle
	lastSent  time.Time
	lastPct   float64
	lastLabel string
	finished  bool
}

type Option func(*Reporter)

func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithReplaceDelay(d time.Duration) Option {
	return func(r *Reporter) { r.replaceDelay = d }
}

// WithClock replaces time.Now; tests drive debounce with it.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(r *Reporter) { r.sleep = sleep }
}

func WithLogger(l *zerolog.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.log = l
		}
	}
}

func NewReporter(t adapter.Transport, conversationID int64, opts ...Option) *Reporter {
	nop := zerolog.Nop()
	r := &Reporter{
		transport:      t,
		conversationID: conversationID,
		interval:       DefaultInterval,
		replaceDelay:   DefaultReplaceDelay,
		now:            time.Now,
		sleep:          sleepCtx,
		log:            &nop,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start sends the initial "starting N items" message and makes it the live message.
func (r *Reporter) Start(ctx context.Context, title string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.title = title
	r.startedAt = r.now()
	r.replace(ctx, renderStart(title, total))
	r.lastSent = r.startedAt
	r.lastPct = 0
	r.lastLabel = ""
	r.finished = false
}

// Update transmits s unless it is debounced. A forced update skips the interval
// check but is still dropped when neither the label nor the percentage moved
// meaningfully. It reports whether a message was sent.
func (r *Reporter) Update(ctx context.Context, s Snapshot, force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return false
	}
	now := r.now()
	if force {
		if s.Label == r.lastLabel && math.Abs(s.Sample.Percent-r.lastPct) < minForcedDelta {
			metrics.IncProgressUpdate("insignificant", true)
			return false
		}
	} else if !r.lastSent.IsZero() && now.Sub(r.lastSent) < r.interval {
		metrics.IncProgressUpdate("debounced", false)
		return false
	}

	if s.Title == "" {
		s.Title = r.title
	}
	if !r.replace(ctx, renderUpdate(s)) {
		metrics.IncProgressUpdate("failed", force)
		return false
	}
	r.lastSent = now
	r.lastPct = s.Sample.Percent
	r.lastLabel = s.Label
	metrics.IncProgressUpdate("sent", force)
	return true
}

// Finish removes the live message and posts the final summary. Updates
// arriving afterwards are dropped.
func (r *Reporter) Finish(ctx context.Context, completed, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = true
	r.dropLive(ctx)
	elapsed := time.Duration(0)
	if !r.startedAt.IsZero() {
		elapsed = r.now().Sub(r.startedAt)
	}
	if _, err := r.transport.SendText(ctx, r.conversationID, renderSummary(r.title, completed, failed, elapsed)); err != nil {
		r.log.Warn().Err(err).Int64("conv_id", r.conversationID).Msg("progress summary send failed")
	}
}

// Live returns the handle of the current live message, if any.
func (r *Reporter) Live() (adapter.MessageHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		return adapter.MessageHandle{}, false
	}
	return *r.live, true
}

// replace swaps the live message for one showing text. Callers hold r.mu.
// Text is capped so the live message is always a single transport message.
func (r *Reporter) replace(ctx context.Context, text string) bool {
	text = clampRunes(text, adapter.MaxSingleMessageRunes)
	if r.live != nil {
		if ed, ok := r.transport.(adapter.Editor); ok {
			err := ed.EditText(ctx, *r.live, text)
			if err == nil {
				return true
			}
			r.log.Debug().Err(err).Msg("progress edit failed, resending")
		}
		r.dropLive(ctx)
		r.sleep(ctx, r.replaceDelay)
	}

	h, err := r.transport.SendText(ctx, r.conversationID, text)
	if err != nil {
		r.log.Warn().Err(err).Int64("conv_id", r.conversationID).Msg("progress send failed")
		return false
	}
	r.live = &h
	return true
}

func (r *Reporter) dropLive(ctx context.Context) {
	if r.live == nil {
		return
	}
	if err := r.transport.DeleteMessage(ctx, *r.live); err != nil {
		r.log.Debug().Err(err).Msg("progress delete failed")
	}
	r.live = nil
}

func clampRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
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
