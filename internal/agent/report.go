package agent

import (
	"time"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/review"
)

// Report is the durable summary of one finished run, persisted on every
// exit path including failures.
type Report struct {
	RunID        string                   `json:"run_id"`
	SiteID       string                   `json:"site_id"`
	SiteURL      string                   `json:"site_url"`
	FinalVerdict review.Verdict           `json:"final_verdict"`
	FinalPhase   Phase                    `json:"final_phase"`
	Iterations   int                      `json:"iterations"`
	History      []IterationResult        `json:"history"`
	PhaseTotals  map[Phase]time.Duration  `json:"phase_totals"`
	PagesCrawled int                      `json:"pages_crawled"`
	EdgeURL      string                   `json:"edge_url,omitempty"`
	Error        string                   `json:"error,omitempty"`
	Started      time.Time                `json:"started"`
	Ended        time.Time                `json:"ended"`
}

// ReportStore persists finished run reports.
type ReportStore interface {
	SaveReport(report *Report) error
	GetReport(runID string) (*Report, error)
	ListReports(limit int) ([]*Report, error)
}

// buildReport snapshots a run's final state.
func buildReport(state *State, verdict review.Verdict) *Report {
	history := state.History()

	report := &Report{
		RunID:        state.RunID,
		SiteID:       state.SiteID,
		SiteURL:      state.SiteURL,
		FinalVerdict: verdict,
		FinalPhase:   state.Phase(),
		Iterations:   state.Iteration(),
		History:      history,
		PhaseTotals:  state.phases.TotalByPhase(),
		Error:        state.FinalError(),
		Started:      state.Started,
		Ended:        state.EndedAt(),
	}
	if inv := state.Inventory(); inv != nil {
		report.PagesCrawled = len(inv.Pages)
	}
	if len(history) > 0 {
		report.EdgeURL = history[len(history)-1].EdgeURL
	}
	return report
}
