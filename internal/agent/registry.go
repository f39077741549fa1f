package agent

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrRunExists is returned when a site already has a live run.
	ErrRunExists = errors.New("run already exists for site")
	// ErrRunNotFound is returned when a site has no registered run.
	ErrRunNotFound = errors.New("run not found")
)

// Registry maps siteId to its single live run. Entries for terminal runs
// are evicted after a fixed delay so recent results stay queryable
// without growing memory forever.
type Registry struct {
	mu       sync.Mutex
	runs     map[string]*State
	eviction time.Duration
	timers   map[string]*time.Timer
}

func NewRegistry(eviction time.Duration) *Registry {
	return &Registry{
		runs:     make(map[string]*State),
		eviction: eviction,
		timers:   make(map[string]*time.Timer),
	}
}

// Register claims the site for a new run. At most one live run per site:
// a second registration fails with ErrRunExists until the previous run
// reaches a terminal phase and is evicted or deleted.
func (r *Registry) Register(state *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.runs[state.SiteID]; ok && !existing.Phase().Terminal() {
		return ErrRunExists
	}
	if t, ok := r.timers[state.SiteID]; ok {
		t.Stop()
		delete(r.timers, state.SiteID)
	}
	r.runs[state.SiteID] = state
	return nil
}

func (r *Registry) Get(siteID string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.runs[siteID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return state, nil
}

// Delete removes a run immediately, cancelling any pending eviction.
func (r *Registry) Delete(siteID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(siteID)
}

func (r *Registry) deleteLocked(siteID string) {
	if t, ok := r.timers[siteID]; ok {
		t.Stop()
		delete(r.timers, siteID)
	}
	delete(r.runs, siteID)
}

// Expire schedules eviction of a terminal run after the fixed delay. The
// entry stays readable until the timer fires.
func (r *Registry) Expire(siteID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[siteID]; !ok {
		return
	}
	if t, ok := r.timers[siteID]; ok {
		t.Stop()
	}
	r.timers[siteID] = time.AfterFunc(r.eviction, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.deleteLocked(siteID)
	})
}

// Active returns the site ids of non-terminal runs.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, state := range r.runs {
		if !state.Phase().Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}
