package agent

import (
	"sync"
	"time"
)

// Phase is the run state machine:
// analyzing -> planning -> building -> verifying -> reviewing -> {complete | failed},
// with building/verifying/reviewing cycling inside the iteration loop.
type Phase string

const (
	PhaseAnalyzing Phase = "analyzing"
	PhasePlanning  Phase = "planning"
	PhaseBuilding  Phase = "building"
	PhaseVerifying Phase = "verifying"
	PhaseReviewing Phase = "reviewing"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether the phase ends the run.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// PhaseInterval is one timed visit to a phase.
type PhaseInterval struct {
	Phase   Phase     `json:"phase"`
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended,omitempty"`
}

// Duration returns the interval length, using now for an open interval.
func (i PhaseInterval) Duration(now time.Time) time.Duration {
	if i.Ended.IsZero() {
		return now.Sub(i.Started)
	}
	return i.Ended.Sub(i.Started)
}

// phaseTracker records phase transitions with timings. Entering a phase
// closes the previous interval.
type phaseTracker struct {
	mu        sync.Mutex
	current   Phase
	intervals []PhaseInterval
	now       func() time.Time
}

func newPhaseTracker() *phaseTracker {
	return &phaseTracker{now: time.Now}
}

func (t *phaseTracker) Enter(p Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if n := len(t.intervals); n > 0 && t.intervals[n-1].Ended.IsZero() {
		t.intervals[n-1].Ended = now
	}
	t.current = p
	t.intervals = append(t.intervals, PhaseInterval{Phase: p, Started: now})
}

func (t *phaseTracker) Current() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Intervals returns a copy of the recorded transitions.
func (t *phaseTracker) Intervals() []PhaseInterval {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PhaseInterval, len(t.intervals))
	copy(out, t.intervals)
	return out
}

// TotalByPhase sums time spent per phase across all visits.
func (t *phaseTracker) TotalByPhase() map[Phase]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	totals := make(map[Phase]time.Duration, len(t.intervals))
	for _, iv := range t.intervals {
		totals[iv.Phase] += iv.Duration(now)
	}
	return totals
}
