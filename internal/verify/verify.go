package verify

import (
	"context"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// Set bundles the four checkers for one run.
type Set struct {
	Visual      *VisualChecker
	Functional  *FunctionalChecker
	Links       *LinkChecker
	Performance *PerformanceChecker
}

// Run invokes all four checkers against a freshly deployed URL. Checkers
// run independently: one failing internally leaves the others' results
// intact, it just contributes an empty (non-passing) section.
func (s *Set) Run(ctx context.Context, deployedURL string, inv *inventory.SiteInventory) *Results {
	results := &Results{}

	if s.Visual != nil {
		results.Visual = s.Visual.Check(ctx, deployedURL, inv)
	}
	if s.Functional != nil {
		results.Functional = s.Functional.Check(deployedURL, inv)
	}
	if s.Links != nil {
		results.Links = s.Links.Check(deployedURL, inv)
	}
	if s.Performance != nil {
		results.Performance = s.Performance.Check(ctx, deployedURL, inv)
	}

	logging.Info("verify: visual %d/%d failed, functional %d/%d failed, links %d/%d failed, avg performance %.1f",
		results.VisualFailures(), len(results.Visual),
		results.FunctionalFailures(), len(results.Functional),
		results.LinkFailures(), len(results.Links),
		results.AvgPerformance())

	return results
}
