//go:build !integration

package jobs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/progress"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// FakeFetcher runs FetchFunc; the default writes "<name>" into the request dir.
type FakeFetcher struct {
	mu        sync.Mutex
	Requests  []adapter.FetchRequest
	FetchFunc func(ctx context.Context, req adapter.FetchRequest, onLine func(string)) (adapter.FetchResult, error)
}

func (f *FakeFetcher) Fetch(ctx context.Context, req adapter.FetchRequest, onLine func(string)) (adapter.FetchResult, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, req, onLine)
	}
	return writeArtifact(req.Dir, "clip.mp4", "data")
}

func writeArtifact(dir, name, content string) (adapter.FetchResult, error) {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		return adapter.FetchResult{ExitCode: 1}, nil
	}
	return adapter.FetchResult{ExitCode: 0}, nil
}

// recordingReporter captures every call the supervisor makes.
type recordingReporter struct {
	mu        sync.Mutex
	started   int
	updates   []progress.Snapshot
	forced    []bool
	finished  bool
	completed int
	failed    int
	onFinish  func()
}

func (r *recordingReporter) Start(ctx context.Context, title string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = total
}

func (r *recordingReporter) Update(ctx context.Context, s progress.Snapshot, force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, s)
	r.forced = append(r.forced, force)
	return true
}

func (r *recordingReporter) Finish(ctx context.Context, completed, failed int) {
	r.mu.Lock()
	r.finished = true
	r.completed, r.failed = completed, failed
	cb := r.onFinish
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}
