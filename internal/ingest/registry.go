package ingest

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry is the in-memory job table. Watchers get a snapshot on every
// transition and their channels close once the job is terminal.
type Registry struct {
	mu       sync.RWMutex
	jobs     map[JobID]Job
	watchers map[JobID][]chan Job
}

func NewRegistry() *Registry {
	return &Registry{
		jobs:     make(map[JobID]Job),
		watchers: make(map[JobID][]chan Job),
	}
}

func (r *Registry) Create(job Job) {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	log.Info().Str("module", "ingest.registry").Str("job", string(job.ID)).Str("file", job.FileName).Msg("job created")
}

func (r *Registry) Get(id JobID) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Watch subscribes to transitions of one job. The current snapshot is
// delivered first; the channel closes when the job reaches a terminal
// state or cancel is called.
func (r *Registry) Watch(id JobID) (<-chan Job, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil, false
	}
	ch := make(chan Job, 8)
	ch <- job
	if job.State.Terminal() {
		close(ch)
		return ch, func() {}, true
	}
	r.watchers[id] = append(r.watchers[id], ch)
	cancel := func() { r.dropWatcher(id, ch) }
	return ch, cancel, true
}

func (r *Registry) dropWatcher(id JobID, ch chan Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.watchers[id]
	for i, w := range list {
		if w == ch {
			r.watchers[id] = append(list[:i], list[i+1:]...)
			close(ch)
			return
		}
	}
}

func (r *Registry) MarkProcessing(id JobID) {
	r.transition(id, func(j Job) Job {
		j.State = JobProcessing
		return j
	})
}

func (r *Registry) MarkReady(id JobID, result json.RawMessage) {
	r.transition(id, func(j Job) Job {
		j.State = JobReady
		j.Result = result
		j.Err = ""
		return j
	})
}

func (r *Registry) MarkFailed(id JobID, msg string) {
	r.transition(id, func(j Job) Job {
		j.State = JobFailed
		j.Err = msg
		return j
	})
}

func (r *Registry) transition(id JobID, fn func(Job) Job) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	job = fn(job)
	job.UpdatedAt = time.Now()
	r.jobs[id] = job
	// Sends and closes stay under the lock; a concurrent cancel must not
	// close a channel this loop is about to send on.
	for _, ch := range r.watchers[id] {
		select {
		case ch <- job:
		default:
			// slow watcher, it will catch up from the map
		}
		if job.State.Terminal() {
			close(ch)
		}
	}
	if job.State.Terminal() {
		delete(r.watchers, id)
	}
	r.mu.Unlock()

	log.Info().Str("module", "ingest.registry").Str("job", string(id)).Str("state", string(job.State)).Msg("job transition")
}
