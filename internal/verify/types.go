// Package verify implements the four independent post-deploy checkers:
// visual, functional, link and performance. Each produces a partial result
// on internal error; a checker failing never blocks the others.
package verify

import (
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
)

// VisualStatus buckets a screenshot comparison.
type VisualStatus string

const (
	VisualIdentical   VisualStatus = "identical"
	VisualAcceptable  VisualStatus = "acceptable"
	VisualNeedsReview VisualStatus = "needs-review"
	VisualFailed      VisualStatus = "failed"
)

// VisualResult is one (page, viewport) comparison.
type VisualResult struct {
	PagePath     string       `json:"page_path"`
	Viewport     string       `json:"viewport"`
	DiffRatio    float64      `json:"diff_ratio"`
	Status       VisualStatus `json:"status"`
	JudgeVerdict string       `json:"judge_verdict,omitempty"`
	JudgeNotes   []string     `json:"judge_notes,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// Failed reports whether this comparison blocks a pass. A needs-review
// diff survives only when the judge called it acceptable.
func (r VisualResult) Failed() bool {
	switch r.Status {
	case VisualIdentical, VisualAcceptable:
		return false
	case VisualNeedsReview:
		return r.JudgeVerdict != "acceptable"
	default:
		return true
	}
}

// FunctionalResult is one replayed interaction compared to its baseline.
type FunctionalResult struct {
	Element inventory.InteractiveElement `json:"element"`
	Passed  bool                         `json:"passed"`
	Reason  string                       `json:"reason,omitempty"`
}

// LinkResult is one checked anchor on a deployed page.
type LinkResult struct {
	PagePath    string `json:"page_path"`
	Href        string `json:"href"`
	ResolvedURL string `json:"resolved_url,omitempty"`
	Internal    bool   `json:"internal"`
	Status      *int   `json:"status"` // nil for external links, never fetched
	Passed      bool   `json:"passed"`
}

// PerformanceResult is one page's performance score.
type PerformanceResult struct {
	PagePath string             `json:"page_path"`
	Score    float64            `json:"score"`
	Source   string             `json:"source"` // api or heuristic
	Vitals   map[string]float64 `json:"vitals,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Results aggregates one iteration's verification output.
type Results struct {
	Visual      []VisualResult      `json:"visual"`
	Functional  []FunctionalResult  `json:"functional"`
	Links       []LinkResult        `json:"links"`
	Performance []PerformanceResult `json:"performance"`
}

// VisualFailures counts blocking visual comparisons.
func (r *Results) VisualFailures() int {
	n := 0
	for _, v := range r.Visual {
		if v.Failed() {
			n++
		}
	}
	return n
}

// FunctionalFailures counts failed interaction replays.
func (r *Results) FunctionalFailures() int {
	n := 0
	for _, f := range r.Functional {
		if !f.Passed {
			n++
		}
	}
	return n
}

// LinkFailures counts broken internal links.
func (r *Results) LinkFailures() int {
	n := 0
	for _, l := range r.Links {
		if !l.Passed {
			n++
		}
	}
	return n
}

// AvgPerformance returns the mean score across scored pages, zero when no
// page produced a score.
func (r *Results) AvgPerformance() float64 {
	if len(r.Performance) == 0 {
		return 0
	}
	var sum float64
	for _, p := range r.Performance {
		sum += p.Score
	}
	return sum / float64(len(r.Performance))
}

// ChecksPass reports whether visual, functional and link checks all have
// zero failures. A checker that produced zero results is treated as
// non-passing: no evidence is not good evidence.
func (r *Results) ChecksPass() bool {
	if len(r.Visual) == 0 || len(r.Functional) == 0 || len(r.Links) == 0 {
		return false
	}
	return r.VisualFailures() == 0 && r.FunctionalFailures() == 0 && r.LinkFailures() == 0
}
