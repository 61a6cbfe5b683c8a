//go:build !integration

package sched

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/jobs"
	"media-courier-bot/internal/progress"
)

type sweepReporter struct {
	updates chan progress.Snapshot
}

func (r *sweepReporter) Start(context.Context, string, int) {}
func (r *sweepReporter) Finish(context.Context, int, int)   {}
func (r *sweepReporter) Update(ctx context.Context, s progress.Snapshot, force bool) bool {
	if !force {
		return false
	}
	select {
	case r.updates <- s:
	default:
	}
	return true
}

type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, req adapter.FetchRequest, onLine func(string)) (adapter.FetchResult, error) {
	close(f.started)
	<-f.release
	return adapter.FetchResult{ExitCode: 1}, nil
}

func TestSweepMergesSideChannelProgress(t *testing.T) {
	logger := zerolog.New(io.Discard)
	reg := jobs.NewRegistry()
	rep := &sweepReporter{updates: make(chan progress.Snapshot, 8)}
	fetcher := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	sup := jobs.NewSupervisor(fetcher, reg, func(int64) jobs.Reporter { return rep }, jobs.SupervisorConfig{
		WorkDir:  t.TempDir(),
		Interval: time.Hour,
	}, &logger)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background(), jobs.Spec{ConversationID: 11, Kind: "anime", Items: []jobs.Item{{Label: "Episode 4"}}})
		close(done)
	}()
	<-fetcher.started
	<-rep.updates // forced label update from the supervisor

	running := reg.ForConversation(11)
	if len(running) != 1 {
		t.Fatalf("expected one running job, got %d", len(running))
	}
	sessionID := running[0].SessionID

	sidePath := filepath.Join(t.TempDir(), "download_progress.json")
	body := `{"` + sessionID + `": {"status": "downloading", "progress": 64.0, "total_size": "300.00MiB"}}`
	if err := os.WriteFile(sidePath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	sw := NewProgressSweeper(time.Hour, reg, progress.NewSideChannel(sidePath), &logger)
	if n := sw.Sweep(context.Background()); n != 1 {
		t.Fatalf("expected one emission, got %d", n)
	}
	got := <-rep.updates
	if got.Sample.Percent != 64 || got.Label != "Episode 4" {
		t.Errorf("unexpected snapshot: %+v", got)
	}

	// Same reading again is neither new nor stalled yet.
	if n := sw.Sweep(context.Background()); n != 0 {
		t.Errorf("expected no emission without news, got %d", n)
	}

	sw.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if n := sw.Sweep(context.Background()); n != 1 {
		t.Errorf("stalled job should be forced, got %d", n)
	}

	close(fetcher.release)
	<-done
	if reg.Len() != 0 {
		t.Error("registry should be empty once the job finished")
	}
}
