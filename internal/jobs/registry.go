package jobs

import (
	"sort"
	"sync"

	"media-courier-bot/internal/infra/metrics"
)

// Registry is the process-wide set of running jobs keyed by session id.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

func (r *Registry) Add(j *Job) {
	r.mu.Lock()
	r.jobs[j.SessionID] = j
	n := len(r.jobs)
	r.mu.Unlock()
	metrics.SetJobsActive(n)
}

func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.jobs, sessionID)
	n := len(r.jobs)
	r.mu.Unlock()
	metrics.SetJobsActive(n)
}

func (r *Registry) Get(sessionID string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[sessionID]
	return j, ok
}

// List returns running jobs, oldest first.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	out := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if out[a].StartedAt.Equal(out[b].StartedAt) {
			return out[a].SessionID < out[b].SessionID
		}
		return out[a].StartedAt.Before(out[b].StartedAt)
	})
	return out
}

func (r *Registry) ForConversation(conv int64) []*Job {
	var out []*Job
	for _, j := range r.List() {
		if j.ConversationID == conv {
			out = append(out, j)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
