package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/config"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/pipeline"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/review"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/settings"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/verify"
)

// Recorder captures a site's baseline once per run.
type Recorder interface {
	Record(siteURL string) (*inventory.SiteInventory, error)
}

// Verifier measures a deployed URL against the baseline.
type Verifier interface {
	Run(ctx context.Context, deployedURL string, inv *inventory.SiteInventory) *verify.Results
}

// Controller drives the optimization loop for one run at a time per
// site: record baseline, plan settings, then iterate
// build -> deploy -> verify -> review until pass, failure, abort or the
// iteration ceiling.
type Controller struct {
	cfg      config.Config
	recorder Recorder
	reviewer review.Client
	queue    pipeline.BuildQueue
	deployer pipeline.Deployer
	verifier Verifier
	registry *Registry
	bus      *Bus
	store    ReportStore // nil disables persistence

	artifactDir string // removed once the run is terminal, empty disables

	// wait hooks, replaceable in tests
	waitBuild func(ctx context.Context, queue pipeline.BuildQueue, jobID string, poll, timeout time.Duration) (*pipeline.JobState, error)
	waitReady func(ctx context.Context, url string, poll, timeout time.Duration) bool
}

// Deps bundles the controller's collaborators.
type Deps struct {
	Recorder Recorder
	Reviewer review.Client
	Queue    pipeline.BuildQueue
	Deployer pipeline.Deployer
	Verifier Verifier
	Registry *Registry
	Bus      *Bus
	Store    ReportStore

	// ArtifactDir holds the run's screenshots and build output, removed
	// on every exit path.
	ArtifactDir string
}

func NewController(cfg config.Config, deps Deps) *Controller {
	return &Controller{
		cfg:         cfg,
		recorder:    deps.Recorder,
		reviewer:    deps.Reviewer,
		queue:       deps.Queue,
		deployer:    deps.Deployer,
		verifier:    deps.Verifier,
		registry:    deps.Registry,
		bus:         deps.Bus,
		store:       deps.Store,
		artifactDir: deps.ArtifactDir,
		waitBuild:   pipeline.WaitForBuild,
		waitReady:   pipeline.WaitForReady,
	}
}

// Run executes one full optimization run synchronously. The returned
// report is also persisted and the registry entry scheduled for
// eviction on every exit path.
func (c *Controller) Run(ctx context.Context, siteID, siteURL string) (*Report, error) {
	state := NewState(siteID, siteURL)
	if err := c.registry.Register(state); err != nil {
		return nil, err
	}

	// mirror log lines onto the run state and the event stream
	logger := logging.GetLogger()
	prevSink := logger.CurrentSink()
	logger.SetSink(func(_ int, line string) {
		state.appendLog(line)
		c.publish(state, Event{Type: EventLogLine, Message: line})
	})

	report := c.runLoop(ctx, state)
	logger.SetSink(prevSink)

	c.publish(state, Event{Type: EventRunComplete, Message: string(report.FinalVerdict)})
	if c.store != nil {
		if err := c.store.SaveReport(report); err != nil {
			logging.Warn("run %s: failed to persist report: %v", state.RunID, err)
		}
	}
	c.cleanupArtifacts(state)
	c.registry.Expire(siteID)

	if report.FinalPhase == PhaseFailed && report.Error != "" {
		return report, fmt.Errorf("run %s failed: %s", state.RunID, report.Error)
	}
	return report, nil
}

func (c *Controller) runLoop(ctx context.Context, state *State) *Report {
	c.transition(state, PhaseAnalyzing)

	inv, err := c.recorder.Record(state.SiteURL)
	if err != nil {
		return c.fail(state, fmt.Sprintf("baseline recording failed: %v", err))
	}
	if len(inv.Pages) == 0 {
		return c.fail(state, "baseline recording found no pages")
	}
	state.setInventory(inv)
	logging.Info("run %s: baseline recorded, %d pages, %d elements",
		state.RunID, len(inv.Pages), len(inv.InteractiveElements))

	if state.Aborted() {
		return c.abort(state)
	}

	c.transition(state, PhasePlanning)
	planned, err := c.reviewer.PlanSettings(ctx, inv)
	if err != nil {
		logging.Warn("run %s: planner failed, using defaults: %v", state.RunID, err)
		planned = settings.Default()
	}
	state.setSettings(planned)

	for iter := 1; iter <= c.cfg.Agent.MaxIterations; iter++ {
		if state.Aborted() {
			return c.abort(state)
		}
		state.setIteration(iter)
		iterStart := time.Now()

		c.transition(state, PhaseBuilding)
		buildState, buildID, err := c.build(ctx, state)
		if err != nil {
			logging.Warn("run %s: iteration %d build failed, softening settings: %v", state.RunID, iter, err)
			state.setSettings(settings.Soften(state.Settings()))
			continue
		}

		deployed, err := c.deployer.Deploy(ctx, projectName(state.SiteID), buildState.Result.OutputDir)
		if err != nil {
			logging.Warn("run %s: iteration %d deploy failed: %v", state.RunID, iter, err)
			continue
		}

		if !c.waitReady(ctx, deployed.URL, c.cfg.Build.PollInterval, c.cfg.Build.ReadinessTimeout) {
			logging.Warn("run %s: edge URL %s readiness unconfirmed, verifying anyway", state.RunID, deployed.URL)
		}

		c.transition(state, PhaseVerifying)
		results := c.verifier.Run(ctx, deployed.URL, inv)

		iterResult := IterationResult{
			Iteration: iter,
			Settings:  state.Settings(),
			BuildID:   buildID,
			EdgeURL:   deployed.URL,
			Results:   results,
			Duration:  time.Since(iterStart),
		}

		if results.ChecksPass() && results.AvgPerformance() >= c.cfg.Agent.PerformanceFloor {
			state.appendIteration(iterResult)
			c.publishIteration(state, iter)
			return c.complete(state)
		}

		c.transition(state, PhaseReviewing)
		rev, err := c.reviewer.ReviewIteration(ctx, &review.Request{
			Current:   review.Summarize(iter, state.Settings(), results),
			History:   summaries(state.History()),
			SiteURL:   state.SiteURL,
			PageCount: len(inv.Pages),
			Failures:  review.FailureDetails(results, 20),
		})
		if err != nil {
			logging.Warn("run %s: review failed, continuing with unchanged settings: %v", state.RunID, err)
			rev = &review.Review{Verdict: review.VerdictNeedsChanges, ShouldRebuild: true}
		}

		iterResult.Review = rev
		state.appendIteration(iterResult)
		c.publishIteration(state, iter)

		switch rev.Verdict {
		case review.VerdictPass:
			if results.ChecksPass() {
				return c.complete(state)
			}
			// a reviewer pass cannot override failing checks
			logging.Warn("run %s: reviewer passed iteration %d despite check failures, continuing", state.RunID, iter)
		case review.VerdictFailed:
			return c.fail(state, fmt.Sprintf("reviewer gave up after iteration %d: %s", iter, rev.Notes))
		}

		if rev.SettingChanges != nil {
			state.setSettings(settings.Merge(state.Settings(), rev.SettingChanges))
		}
	}

	return c.exhausted(state)
}

// build enqueues one job and waits for it under the hard build timeout.
func (c *Controller) build(ctx context.Context, state *State) (*pipeline.JobState, string, error) {
	jobID := uuid.NewString()
	job := pipeline.Job{
		ID:       jobID,
		SiteURL:  state.SiteURL,
		Settings: state.Settings(),
	}
	if err := c.queue.Enqueue(ctx, job); err != nil {
		return nil, jobID, fmt.Errorf("enqueue: %w", err)
	}

	jobState, err := c.waitBuild(ctx, c.queue, jobID, c.cfg.Build.PollInterval, c.cfg.Build.BuildTimeout)
	if err != nil {
		return nil, jobID, err
	}
	if jobState.Result == nil {
		return nil, jobID, fmt.Errorf("job %s completed without a result", jobID)
	}
	return jobState, jobID, nil
}

func (c *Controller) complete(state *State) *Report {
	c.transition(state, PhaseComplete)
	logging.Info("run %s: complete after %d iterations", state.RunID, state.Iteration())
	return buildReport(state, review.VerdictPass)
}

func (c *Controller) fail(state *State, reason string) *Report {
	state.setFinalError(reason)
	c.transition(state, PhaseFailed)
	logging.Error("run %s: %s", state.RunID, reason)
	return buildReport(state, review.VerdictFailed)
}

// exhausted ends a run that used up its iteration budget. The final
// verdict carries the last reviewer verdict, or needs-changes when no
// iteration reached review.
func (c *Controller) exhausted(state *State) *Report {
	state.setFinalError(fmt.Sprintf("no passing build within %d iterations", c.cfg.Agent.MaxIterations))
	c.transition(state, PhaseFailed)
	logging.Error("run %s: %s", state.RunID, state.FinalError())

	verdict := review.VerdictNeedsChanges
	if history := state.History(); len(history) > 0 {
		if last := history[len(history)-1].Review; last != nil && last.Verdict != "" {
			verdict = last.Verdict
		}
	}
	return buildReport(state, verdict)
}

func (c *Controller) abort(state *State) *Report {
	state.setFinalError("aborted")
	c.transition(state, PhaseFailed)
	logging.Info("run %s: aborted at iteration %d", state.RunID, state.Iteration())
	return buildReport(state, review.VerdictIncomplete)
}

func (c *Controller) transition(state *State, p Phase) {
	state.enterPhase(p)
	c.publish(state, Event{Type: EventPhaseChanged, Phase: p})
}

func (c *Controller) publish(state *State, ev Event) {
	if c.bus == nil {
		return
	}
	ev.RunID = state.RunID
	ev.SiteID = state.SiteID
	ev.Iteration = state.Iteration()
	if ev.Phase == "" {
		ev.Phase = state.Phase()
	}
	c.bus.Publish(ev)
}

func (c *Controller) publishIteration(state *State, iter int) {
	c.publish(state, Event{
		Type:      EventIterationComplete,
		Iteration: iter,
		Message:   fmt.Sprintf("iteration %d complete", iter),
	})
}

// cleanupArtifacts removes the run's screenshot directory once the run
// is terminal. Report rows and logs survive.
func (c *Controller) cleanupArtifacts(state *State) {
	if c.artifactDir == "" {
		return
	}
	if err := os.RemoveAll(c.artifactDir); err != nil {
		logging.Warn("run %s: artifact cleanup failed: %v", state.RunID, err)
	}
}

// RunWorkDir is where a run's screenshots and temp output live.
func RunWorkDir(workDir, runID string) string {
	return filepath.Join(workDir, runID)
}

func projectName(siteID string) string {
	return "speedagent-" + siteID
}

func summaries(history []IterationResult) []review.IterationSummary {
	out := make([]review.IterationSummary, 0, len(history))
	for _, h := range history {
		out = append(out, review.Summarize(h.Iteration, h.Settings, h.Results))
	}
	return out
}
