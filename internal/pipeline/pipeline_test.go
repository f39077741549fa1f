package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/settings"
)

type fakeOptimizer struct {
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (f *fakeOptimizer) Optimize(_ context.Context, _ *inventory.SiteInventory, _ settings.Settings) (*OptimizeResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &OptimizeResult{OutputDir: "/tmp/out", Pages: []string{"/"}}, nil
}

func TestInProcessQueueCompletes(t *testing.T) {
	q := NewInProcessQueue(&fakeOptimizer{}, &inventory.SiteInventory{URL: "https://example.com"})

	require.NoError(t, q.Enqueue(t.Context(), Job{ID: "job-1", Settings: settings.Default()}))

	state, err := WaitForBuild(t.Context(), q, "job-1", 10*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, state.Status)
	require.NotNil(t, state.Result)
	assert.Equal(t, "/tmp/out", state.Result.OutputDir)
}

func TestInProcessQueueIdempotentEnqueue(t *testing.T) {
	opt := &fakeOptimizer{}
	q := NewInProcessQueue(opt, &inventory.SiteInventory{})

	require.NoError(t, q.Enqueue(t.Context(), Job{ID: "dup"}))
	require.NoError(t, q.Enqueue(t.Context(), Job{ID: "dup"}))

	_, err := WaitForBuild(t.Context(), q, "dup", 10*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(1), opt.calls.Load())
}

func TestInProcessQueueFailedJob(t *testing.T) {
	q := NewInProcessQueue(&fakeOptimizer{err: errors.New("boom")}, &inventory.SiteInventory{})
	require.NoError(t, q.Enqueue(t.Context(), Job{ID: "bad"}))

	state, err := WaitForBuild(t.Context(), q, "bad", 10*time.Millisecond, time.Second)
	require.Error(t, err)
	require.NotNil(t, state)
	assert.Equal(t, JobFailed, state.Status)
	assert.Equal(t, "boom", state.Error)
}

func TestInProcessQueueUnknownJob(t *testing.T) {
	q := NewInProcessQueue(&fakeOptimizer{}, &inventory.SiteInventory{})
	_, err := q.Status(t.Context(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestWaitForBuildHardTimeout(t *testing.T) {
	q := NewInProcessQueue(&fakeOptimizer{delay: time.Second}, &inventory.SiteInventory{})
	require.NoError(t, q.Enqueue(t.Context(), Job{ID: "slow"}))

	_, err := WaitForBuild(t.Context(), q, "slow", 10*time.Millisecond, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrBuildTimeout)
}

func TestHTTPQueueRoundTrip(t *testing.T) {
	var enqueued Job
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/jobs":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&enqueued))
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/remote-1":
			json.NewEncoder(w).Encode(JobState{ID: "remote-1", Status: JobCompleted})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	q := NewHTTPQueue(srv.URL)
	require.NoError(t, q.Enqueue(t.Context(), Job{ID: "remote-1", SiteURL: "https://example.com"}))
	assert.Equal(t, "remote-1", enqueued.ID)

	state, err := q.Status(t.Context(), "remote-1")
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, state.Status)
}

func TestHTTPQueueConflictIsIdempotentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	q := NewHTTPQueue(srv.URL)
	assert.NoError(t, q.Enqueue(t.Context(), Job{ID: "dup"}))
}

func TestHTTPDeployer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/deploys", r.URL.Path)
		var req deployRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "speedagent-site-1", req.ProjectName)
		json.NewEncoder(w).Encode(DeployResult{URL: "https://edge.example.net", FilesUploaded: 7, TotalBytes: 4096})
	}))
	defer srv.Close()

	d := NewHTTPDeployer(srv.URL)
	result, err := d.Deploy(t.Context(), "speedagent-site-1", "/tmp/out")
	require.NoError(t, err)
	assert.Equal(t, "https://edge.example.net", result.URL)
	assert.Equal(t, 7, result.FilesUploaded)
}

func TestHTTPDeployerMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(DeployResult{})
	}))
	defer srv.Close()

	_, err := NewHTTPDeployer(srv.URL).Deploy(t.Context(), "p", "/tmp/out")
	assert.Error(t, err)
}

func TestWaitForReadySoftTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ready := WaitForReady(t.Context(), srv.URL, 10*time.Millisecond, 50*time.Millisecond)
	assert.False(t, ready)
}

func TestWaitForReadyImmediate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, WaitForReady(t.Context(), srv.URL, 10*time.Millisecond, time.Second))
}
