package sched

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"media-courier-bot/internal/jobs"
)

// reSessionDir matches jobs.NewSessionID output: <conv>-<kind>-<ulid>.
var reSessionDir = regexp.MustCompile(`^-?\d+-[a-z]+-([0-9A-HJKMNP-TV-Z]{26})$`)

// WorkdirJanitor removes session directories that outlived their job, e.g.
// after a crash between download and release. Anything that does not look
// like a session directory is left alone.
type WorkdirJanitor struct {
	interval time.Duration
	maxAge   time.Duration
	dir      string
	registry *jobs.Registry
	now      func() time.Time
	log      *zerolog.Logger
}

func NewWorkdirJanitor(interval, maxAge time.Duration, dir string, registry *jobs.Registry, logger *zerolog.Logger) *WorkdirJanitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 6 * time.Hour
	}
	l := logger.With().Str("component", "WorkdirJanitor").Logger()
	return &WorkdirJanitor{interval: interval, maxAge: maxAge, dir: dir, registry: registry, now: time.Now, log: &l}
}

func (w *WorkdirJanitor) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Str("dir", w.dir).Msg("Starting workdir janitor")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping workdir janitor")
			return ctx.Err()
		case <-ticker.C:
			if n := w.Sweep(); n > 0 {
				w.log.Info().Int("removed", n).Msg("stale session directories removed")
			}
		}
	}
}

// Sweep runs one pass and returns how many directories were removed.
func (w *WorkdirJanitor) Sweep() int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Msg("read work dir")
		return 0
	}
	cutoff := w.now().Add(-w.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := reSessionDir.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := ulid.ParseStrict(m[1])
		if err != nil || ulid.Time(id.Time()).After(cutoff) {
			continue
		}
		if _, running := w.registry.Get(e.Name()); running {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.dir, e.Name())); err != nil {
			w.log.Warn().Err(err).Str("session_id", e.Name()).Msg("remove stale session dir")
			continue
		}
		removed++
	}
	return removed
}
