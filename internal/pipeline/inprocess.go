package pipeline

import (
	"context"
	"sync"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// InProcessQueue runs optimize jobs in-process, used when no external
// build queue is configured. Jobs run one goroutine each; enqueueing an
// id that already exists is a no-op.
type InProcessQueue struct {
	optimizer Optimizer
	inv       *inventory.SiteInventory

	mu   sync.Mutex
	jobs map[string]*JobState
}

func NewInProcessQueue(optimizer Optimizer, inv *inventory.SiteInventory) *InProcessQueue {
	return &InProcessQueue{
		optimizer: optimizer,
		inv:       inv,
		jobs:      make(map[string]*JobState),
	}
}

func (q *InProcessQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.ID]; exists {
		return nil
	}
	q.jobs[job.ID] = &JobState{ID: job.ID, Status: JobQueued}

	// Detached on purpose: abort stops the caller's polling, not the job.
	go q.run(job)
	return nil
}

func (q *InProcessQueue) run(job Job) {
	q.setStatus(job.ID, JobRunning, nil, "")

	result, err := q.optimizer.Optimize(context.Background(), q.inv, job.Settings)
	if err != nil {
		logging.Warn("build job %s failed: %v", job.ID, err)
		q.setStatus(job.ID, JobFailed, nil, err.Error())
		return
	}
	q.setStatus(job.ID, JobCompleted, result, "")
}

func (q *InProcessQueue) setStatus(jobID string, status JobStatus, result *OptimizeResult, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if state, ok := q.jobs[jobID]; ok {
		state.Status = status
		state.Result = result
		state.Error = errMsg
	}
}

func (q *InProcessQueue) Status(_ context.Context, jobID string) (*JobState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, ok := q.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	// copy so callers never see concurrent mutation
	copied := *state
	return &copied, nil
}
