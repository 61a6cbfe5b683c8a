package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/infra/logging"
	"media-courier-bot/internal/infra/metrics"
	"media-courier-bot/internal/infra/worker"
	"media-courier-bot/internal/progress"
)

// Item is one download inside a job.
type Item struct {
	Label       string
	Request     adapter.FetchRequest
	PrimaryName string   // expected artifact file name, may be empty
	Extensions  []string // accepted extensions for the fallback scan
	Metadata    map[string]string
}

type Spec struct {
	ConversationID int64
	Kind           string // video | music | anime
	Title          string
	Items          []Item
}

// Outcome is the per-item result. On success ArtifactPath is the temporary
// copy the caller must release after delivery and StoredPath the durable one.
type Outcome struct {
	Label        string
	Success      bool
	ArtifactPath string
	StoredPath   string
	SizeBytes    int64
	Metadata     map[string]string
	Reason       string
}

type Result struct {
	SessionID string
	Outcomes  []Outcome
	Completed int
	Failed    int
	Elapsed   time.Duration
}

// Reporter is the progress surface a job talks to.
type Reporter interface {
	Sink
	Start(ctx context.Context, title string, total int)
	Finish(ctx context.Context, completed, failed int)
}

type ReporterFactory func(conversationID int64) Reporter

type SupervisorConfig struct {
	WorkDir   string
	OutputDir string
	Interval  time.Duration
	// Throttle is the process-wide ceiling shared with outbound batch sends.
	// Each fetch holds one permit; nil leaves fetches unbounded.
	Throttle *worker.Throttle
}

// Supervisor runs jobs against the external fetcher. It never retries.
type Supervisor struct {
	fetcher   adapter.Fetcher
	registry  *Registry
	reporters ReporterFactory
	workDir   string
	outputDir string
	interval  time.Duration
	throttle  *worker.Throttle
	now       func() time.Time
	log       *zerolog.Logger
}

func NewSupervisor(f adapter.Fetcher, reg *Registry, reporters ReporterFactory, cfg SupervisorConfig, logger *zerolog.Logger) *Supervisor {
	if cfg.Interval <= 0 {
		cfg.Interval = progress.DefaultInterval
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	l := logger.With().Str("component", "Supervisor").Logger()
	return &Supervisor{
		fetcher:   f,
		registry:  reg,
		reporters: reporters,
		workDir:   cfg.WorkDir,
		outputDir: cfg.OutputDir,
		interval:  cfg.Interval,
		throttle:  cfg.Throttle,
		now:       time.Now,
		log:       &l,
	}
}

// SetClock replaces time.Now.
func (s *Supervisor) SetClock(now func() time.Time) { s.now = now }

// NewSessionID builds a unique, time-ordered id for a job.
func NewSessionID(conv int64, kind string, at time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy())
	return fmt.Sprintf("%d-%s-%s", conv, kind, id.String())
}

// Run executes every item of spec in order and returns once all are settled.
// The job is visible in the registry only until its summary is reported.
func (s *Supervisor) Run(ctx context.Context, spec Spec) Result {
	started := s.now()
	sessionID := NewSessionID(spec.ConversationID, spec.Kind, started)
	ctx = logging.WithSessID(logging.WithConvID(ctx, spec.ConversationID), sessionID)
	l := logging.With(ctx, s.log)
	defer logging.TraceDuration(l, "Supervisor.Run")()

	rep := s.reporters(spec.ConversationID)
	job := newJob(sessionID, spec.ConversationID, spec.Kind, spec.Title, len(spec.Items), started, rep)
	s.registry.Add(job)
	defer s.registry.Remove(sessionID)

	l.Info().Str("kind", spec.Kind).Int("items", len(spec.Items)).Msg("job started")
	rep.Start(ctx, spec.Title, len(spec.Items))

	res := Result{SessionID: sessionID}
	for i, item := range spec.Items {
		out := s.runItem(ctx, l, job, i, item)
		job.finishItem(out.Success)
		res.Outcomes = append(res.Outcomes, out)
	}
	res.Completed, res.Failed = job.counts()
	// Leave the registry first so the sweeper cannot forward into a finished report.
	s.registry.Remove(sessionID)
	rep.Finish(ctx, res.Completed, res.Failed)
	res.Elapsed = s.now().Sub(started)

	status := "completed"
	switch {
	case res.Completed == 0 && res.Failed > 0:
		status = "failed"
	case res.Failed > 0:
		status = "partial"
	}
	metrics.IncJob(spec.Kind, status)
	metrics.ObserveJobDuration(spec.Kind, res.Elapsed)
	l.Info().Int("completed", res.Completed).Int("failed", res.Failed).Dur("elapsed", res.Elapsed).Msg("job finished")
	return res
}

func (s *Supervisor) runItem(ctx context.Context, l *zerolog.Logger, job *Job, i int, item Item) Outcome {
	label := item.Label
	if label == "" {
		label = fmt.Sprintf("Item %d/%d", i+1, job.total)
	}
	out := Outcome{Label: label, Metadata: item.Metadata}

	job.beginItem(label)
	job.forward(ctx, s.now(), true)

	dir := filepath.Join(s.workDir, job.SessionID, strconv.Itoa(i+1))
	fail := func(class, reason string) Outcome {
		metrics.IncJobItem(class)
		l.Warn().Str("item", label).Str("class", class).Msg(reason)
		_ = os.RemoveAll(dir)
		out.Reason = reason
		return out
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail("store", "could not prepare work directory")
	}

	req := item.Request
	req.Dir = dir
	onLine := func(line string) {
		next, ok := progress.Parse(line, job.Sample())
		if !ok {
			return
		}
		job.setSample(next)
		if now := s.now(); now.Sub(job.LastForwarded()) >= s.interval {
			job.forward(ctx, now, false)
		}
	}

	res, err := worker.WithPermit(ctx, s.throttle, func(ctx context.Context) (adapter.FetchResult, error) {
		return s.fetcher.Fetch(ctx, req, onLine)
	})
	switch {
	case err != nil && errors.Is(err, domain.ErrDownloaderUnavailable):
		return fail("spawn", "downloader is not available on this host")
	case err != nil:
		return fail("exit", "download failed: "+err.Error())
	case res.ExitCode != 0:
		return fail("exit", fmt.Sprintf("downloader exited with code %d", res.ExitCode))
	}

	path, err := LocateArtifact(dir, item.PrimaryName, item.Extensions)
	if err != nil {
		return fail("missing", "download finished but no output file was found")
	}
	stored := ""
	if s.outputDir != "" {
		stored, err = CopyArtifact(path, s.outputDir)
		if err != nil {
			return fail("store", "could not store the downloaded file")
		}
	}
	if st, err := os.Stat(path); err == nil {
		out.SizeBytes = st.Size()
	}

	metrics.IncJobItem("ok")
	out.Success = true
	out.ArtifactPath = path
	out.StoredPath = stored
	return out
}
