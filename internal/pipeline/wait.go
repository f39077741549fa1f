package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// WaitForBuild polls the queue until the job reaches a terminal status or
// the hard timeout elapses. Transient polling errors are logged and
// retried; they do not fail the wait. A failed job or an elapsed timeout
// returns an error, wrapping ErrBuildTimeout for the latter.
func WaitForBuild(ctx context.Context, queue BuildQueue, jobID string, pollInterval, timeout time.Duration) (*JobState, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		state, err := queue.Status(ctx, jobID)
		if err != nil {
			logging.Warn("polling build job %s: %v", jobID, err)
		} else if state.Status.Terminal() {
			if state.Status == JobFailed {
				return state, fmt.Errorf("build job %s failed: %s", jobID, state.Error)
			}
			return state, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("job %s after %s: %w", jobID, timeout, ErrBuildTimeout)
		case <-ticker.C:
		}
	}
}

// WaitForReady polls the deployed URL until it answers 200. The timeout
// is soft: elapsing it logs a warning and reports not-ready, and the
// caller proceeds either way.
func WaitForReady(ctx context.Context, deployedURL string, pollInterval, timeout time.Duration) bool {
	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, deployedURL, nil)
		if err != nil {
			logging.Warn("edge readiness: bad URL %s: %v", deployedURL, err)
			return false
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}

		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			logging.Warn("edge URL %s not ready after %s, proceeding anyway", deployedURL, timeout)
			return false
		case <-ticker.C:
		}
	}
}
