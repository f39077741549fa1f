package agent

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/review"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/settings"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/verify"
)

// IterationResult is one completed build+verify cycle. It is appended
// only after a successful deploy and measurement, never for a failed
// build, and is immutable once appended.
type IterationResult struct {
	Iteration int               `json:"iteration"`
	Settings  settings.Settings `json:"settings"`
	BuildID   string            `json:"build_id"`
	EdgeURL   string            `json:"edge_url"`
	Results   *verify.Results   `json:"results"`
	Review    *review.Review    `json:"review,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// State is the live record of one optimization run. It is mutated only
// by the run's owning goroutine; observers read through snapshot
// accessors.
type State struct {
	RunID   string
	SiteID  string
	SiteURL string
	Started time.Time

	phases  *phaseTracker
	aborted atomic.Bool

	mu         sync.Mutex
	iteration  int
	inventory  *inventory.SiteInventory
	settings   settings.Settings
	history    []IterationResult
	logs       []string
	finalError string
	endedAt    time.Time
}

// maxRunLogLines bounds the per-run log buffer; older lines are dropped.
const maxRunLogLines = 500

func NewState(siteID, siteURL string) *State {
	return &State{
		RunID:   uuid.NewString(),
		SiteID:  siteID,
		SiteURL: siteURL,
		Started: time.Now(),
		phases:  newPhaseTracker(),
	}
}

// Abort requests a cooperative stop. The loop honors it at iteration
// boundaries; work already dispatched keeps running server-side.
func (s *State) Abort() {
	s.aborted.Store(true)
}

func (s *State) Aborted() bool {
	return s.aborted.Load()
}

func (s *State) Phase() Phase {
	return s.phases.Current()
}

func (s *State) PhaseIntervals() []PhaseInterval {
	return s.phases.Intervals()
}

func (s *State) enterPhase(p Phase) {
	s.phases.Enter(p)
	if p.Terminal() {
		s.mu.Lock()
		s.endedAt = time.Now()
		s.mu.Unlock()
	}
}

func (s *State) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

func (s *State) setIteration(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration = n
}

func (s *State) Inventory() *inventory.SiteInventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory
}

func (s *State) setInventory(inv *inventory.SiteInventory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = inv
}

func (s *State) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *State) setSettings(v settings.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = v
}

// History returns a copy of the appended iteration results.
func (s *State) History() []IterationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]IterationResult, len(s.history))
	copy(out, s.history)
	return out
}

func (s *State) appendIteration(result IterationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, result)
}

// Logs returns a copy of the run's captured log lines.
func (s *State) Logs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *State) appendLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.logs) >= maxRunLogLines {
		s.logs = s.logs[1:]
	}
	s.logs = append(s.logs, line)
}

func (s *State) FinalError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalError
}

func (s *State) setFinalError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalError = msg
}

func (s *State) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt
}
