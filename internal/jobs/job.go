// Package jobs supervises external download processes and tracks them while they run.
package jobs

import (
	"context"
	"sync"
	"time"

	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/progress"
)

// Sink receives progress snapshots; *progress.Reporter implements it.
type Sink interface {
	Update(ctx context.Context, s progress.Snapshot, force bool) bool
}

// Job is one supervised download session. Counters are only mutated by the
// supervisor that owns it and by the registry sweep.
type Job struct {
	SessionID      string
	ConversationID int64
	Kind           string
	Title          string
	StartedAt      time.Time

	sink Sink

	mu            sync.Mutex
	total         int
	completed     int
	failed        int
	label         string
	sample        model.ProgressSample
	lastForwarded time.Time
}

func newJob(sessionID string, conv int64, kind, title string, total int, started time.Time, sink Sink) *Job {
	return &Job{
		SessionID:      sessionID,
		ConversationID: conv,
		Kind:           kind,
		Title:          title,
		StartedAt:      started,
		sink:           sink,
		total:          total,
	}
}

// Snapshot copies the job's current view for rendering.
func (j *Job) Snapshot() progress.Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() progress.Snapshot {
	return progress.Snapshot{
		Title:     j.Title,
		Label:     j.label,
		Total:     j.total,
		Completed: j.completed,
		Failed:    j.failed,
		Sample:    j.sample,
	}
}

// Sample is the last accepted progress reading.
func (j *Job) Sample() model.ProgressSample {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sample
}

// LastForwarded is when a sample was last handed to the sink.
func (j *Job) LastForwarded() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastForwarded
}

func (j *Job) beginItem(label string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.label = label
	j.sample = model.ProgressSample{}
}

func (j *Job) finishItem(ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ok {
		j.completed++
	} else {
		j.failed++
	}
}

func (j *Job) setSample(s model.ProgressSample) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sample = s
}

// MergeSample adopts s if it is ahead of what the job already knows.
func (j *Job) MergeSample(s model.ProgressSample) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s.Percent <= j.sample.Percent {
		return false
	}
	j.sample = s
	return true
}

// forward pushes the current snapshot to the sink and records when it did.
func (j *Job) forward(ctx context.Context, now time.Time, force bool) bool {
	if j.sink == nil {
		return false
	}
	snap := j.Snapshot()
	sent := j.sink.Update(ctx, snap, force)
	j.mu.Lock()
	j.lastForwarded = now
	j.mu.Unlock()
	return sent
}

// Forward is used by the sweep to push a stalled job's snapshot.
func (j *Job) Forward(ctx context.Context, now time.Time) bool {
	return j.forward(ctx, now, true)
}

func (j *Job) counts() (completed, failed int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.completed, j.failed
}
