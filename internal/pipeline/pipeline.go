// Package pipeline defines the build-side collaborators the agent drives:
// the optimizer that transforms a site, the deployer that publishes the
// output, and the build queue that runs optimize jobs asynchronously.
package pipeline

import (
	"context"
	"errors"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/settings"
)

// ErrBuildTimeout is returned when a build job does not reach a terminal
// status before the hard build deadline.
var ErrBuildTimeout = errors.New("build timed out")

// ErrJobNotFound is returned when polling an unknown job id.
var ErrJobNotFound = errors.New("build job not found")

// JobStatus is the lifecycle of one queued build job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status will not change again.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// OptimizeStats are per-category byte counts for one optimize pass.
type OptimizeStats struct {
	OriginalBytes   int64            `json:"original_bytes"`
	OptimizedBytes  int64            `json:"optimized_bytes"`
	SavedByCategory map[string]int64 `json:"saved_by_category,omitempty"` // images, css, js, fonts, video
}

// OptimizeResult is the output of one optimize pass.
type OptimizeResult struct {
	Pages     []string      `json:"pages"` // page paths written to the output dir
	OutputDir string        `json:"output_dir"`
	Stats     OptimizeStats `json:"stats"`
}

// DeployResult describes one published build.
type DeployResult struct {
	URL           string `json:"url"`
	FilesUploaded int    `json:"files_uploaded"`
	TotalBytes    int64  `json:"total_bytes"`
}

// Optimizer transforms a recorded site under the given settings. It must
// not mutate the inventory.
type Optimizer interface {
	Optimize(ctx context.Context, inv *inventory.SiteInventory, s settings.Settings) (*OptimizeResult, error)
}

// Deployer publishes an optimized output directory. Project creation is
// idempotent; uploads are content-addressed on the deployer side.
type Deployer interface {
	Deploy(ctx context.Context, projectName, outputDir string) (*DeployResult, error)
}

// Job is one build request. ID is a caller-supplied idempotency key:
// enqueueing the same ID twice must not start a second build.
type Job struct {
	ID       string            `json:"id"`
	SiteURL  string            `json:"site_url"`
	Settings settings.Settings `json:"settings"`
}

// JobState is the polled view of one job.
type JobState struct {
	ID     string          `json:"id"`
	Status JobStatus       `json:"status"`
	Result *OptimizeResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BuildQueue accepts optimize jobs and exposes their status for polling.
// Status is pulled, never pushed.
type BuildQueue interface {
	Enqueue(ctx context.Context, job Job) error
	Status(ctx context.Context, jobID string) (*JobState, error)
}
