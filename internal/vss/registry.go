package vss

import (
	"os"
	"sync"
)

// Registry tracks every shadow ID created by this process, keyed by
// process id, so cross-run cleanup can never accidentally destroy another
// process's shadows (spec §4.5's "Tracking" rule and §5's "process-scoped,
// accessed only from the main thread" resource note). A sync.Mutex guards
// the map regardless of actual contention, matching the teacher's habit of
// guarding shared maps even in its single-threaded request paths.
type Registry struct {
	mu   sync.Mutex
	pid  int
	ids  map[string]struct{}
}

// NewRegistry returns a Registry scoped to the current process.
func NewRegistry() *Registry {
	return &Registry{pid: os.Getpid(), ids: make(map[string]struct{})}
}

// Add records a newly-discovered shadow ID.
func (r *Registry) Add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = struct{}{}
}

// Contains reports whether id was registered by this process.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// IDs returns a snapshot of every registered shadow ID.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	return ids
}

// Clear empties the registry, used after a successful Remove.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[string]struct{})
}

// PID returns the process id this registry is scoped to.
func (r *Registry) PID() int {
	return r.pid
}
