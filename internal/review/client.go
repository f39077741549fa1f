// Package review wraps the external judgment collaborator: the planner
// that produces initial settings, the reviewer that decides whether an
// iteration's result is acceptable, and the screenshot judge for ambiguous
// visual diffs.
package review

import (
	"context"
	"fmt"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/config"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/settings"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/verify"
)

// Provider names a reviewer backend.
type Provider string

const (
	OpenRouter Provider = "openrouter"
	Mock       Provider = "mock"
)

// Verdict classifies an iteration or a whole run.
type Verdict string

const (
	VerdictPass         Verdict = "pass"
	VerdictNeedsChanges Verdict = "needs-changes"
	VerdictFailed       Verdict = "failed"
	VerdictIncomplete   Verdict = "incomplete"
)

// IterationSummary is the per-iteration digest handed to the reviewer.
type IterationSummary struct {
	Iteration          int               `json:"iteration"`
	Settings           settings.Settings `json:"settings"`
	VisualFailures     int               `json:"visual_failures"`
	FunctionalFailures int               `json:"functional_failures"`
	LinkFailures       int               `json:"link_failures"`
	AvgPerformance     float64           `json:"avg_performance"`
}

// Request is one review call: the current iteration, prior history and
// site context.
type Request struct {
	Current   IterationSummary   `json:"current"`
	History   []IterationSummary `json:"history"`
	SiteURL   string             `json:"site_url"`
	PageCount int                `json:"page_count"`
	Failures  []string           `json:"failures"` // human-readable failure details
}

// Review is the reviewer's answer. A zero-value review means "continue
// with unchanged settings", which is the conservative default on partial
// or empty responses.
type Review struct {
	Verdict        Verdict            `json:"verdict"`
	ShouldRebuild  bool               `json:"should_rebuild"`
	SettingChanges *settings.Override `json:"setting_changes,omitempty"`
	Notes          string             `json:"notes,omitempty"`
}

// Client is the judgment collaborator surface the agent consumes.
type Client interface {
	// PlanSettings produces the initial settings for a site.
	PlanSettings(ctx context.Context, inv *inventory.SiteInventory) (settings.Settings, error)
	// ReviewIteration judges one iteration's results.
	ReviewIteration(ctx context.Context, req *Request) (*Review, error)
	// JudgeScreenshots gives a verdict on an ambiguous visual diff.
	JudgeScreenshots(ctx context.Context, baseline, candidate []byte, pagePath, viewport string) (string, []string, error)
}

// Client must satisfy the visual checker's judge surface.
var _ verify.Judge = (Client)(nil)

// NewClient creates a reviewer client for the configured provider.
func NewClient(cfg config.ReviewerConfig) (Client, error) {
	switch Provider(cfg.Provider) {
	case OpenRouter:
		return newOpenRouterClient(cfg)
	case Mock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown reviewer provider: %s", cfg.Provider)
	}
}

// Summarize digests verification results into an IterationSummary.
func Summarize(iteration int, s settings.Settings, results *verify.Results) IterationSummary {
	return IterationSummary{
		Iteration:          iteration,
		Settings:           s,
		VisualFailures:     results.VisualFailures(),
		FunctionalFailures: results.FunctionalFailures(),
		LinkFailures:       results.LinkFailures(),
		AvgPerformance:     results.AvgPerformance(),
	}
}

// FailureDetails lists human-readable failure lines for the reviewer
// prompt, capped to keep the request bounded.
func FailureDetails(results *verify.Results, max int) []string {
	var details []string
	add := func(line string) bool {
		if len(details) >= max {
			return false
		}
		details = append(details, line)
		return true
	}

	for _, v := range results.Visual {
		if v.Failed() {
			if !add(fmt.Sprintf("visual: %s@%s diff %.1f%% (%s)", v.PagePath, v.Viewport, v.DiffRatio*100, v.Status)) {
				return details
			}
		}
	}
	for _, f := range results.Functional {
		if !f.Passed {
			if !add(fmt.Sprintf("functional: %s %s on %s: %s", f.Element.Type, f.Element.Selector, f.Element.PagePath, f.Reason)) {
				return details
			}
		}
	}
	for _, l := range results.Links {
		if !l.Passed {
			status := 0
			if l.Status != nil {
				status = *l.Status
			}
			if !add(fmt.Sprintf("link: %s on %s returned %d", l.Href, l.PagePath, status)) {
				return details
			}
		}
	}
	return details
}
