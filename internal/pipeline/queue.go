package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPQueue is a BuildQueue backed by an external job service: POST /jobs
// to enqueue, GET /jobs/{id} to poll.
type HTTPQueue struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPQueue(endpoint string) *HTTPQueue {
	return &HTTPQueue{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (q *HTTPQueue) Enqueue(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.endpoint+"/jobs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enqueue request failed: %w", err)
	}
	defer resp.Body.Close()

	// 409 means the idempotency id is already queued, which is fine
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("build queue returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (q *HTTPQueue) Status(ctx context.Context, jobID string) (*JobState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint+"/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("build queue returned status %d for job %s", resp.StatusCode, jobID)
	}

	var state JobState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode job state: %w", err)
	}
	return &state, nil
}
