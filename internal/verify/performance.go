package verify

import (
	"context"
	"errors"
	"net/url"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/browser"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

const maxPerformancePages = 5

// ErrScorerUnavailable is returned by a Scorer when the external API is
// down or rate-limiting; the checker falls back to the local heuristic.
var ErrScorerUnavailable = errors.New("scorer unavailable")

// Scorer is the external performance scoring collaborator.
type Scorer interface {
	Score(ctx context.Context, pageURL, strategy string) (score float64, vitals map[string]float64, err error)
}

// TimingSource provides navigation timing for the heuristic fallback.
type TimingSource interface {
	Navigate(url string) error
	NavigationTiming() (*browser.Timing, error)
}

// PerformanceChecker scores deployed pages, preferring the external API
// and degrading to a local timing heuristic.
type PerformanceChecker struct {
	scorer   Scorer // may be nil: heuristic only
	timing   TimingSource
	strategy string
}

// NewPerformanceChecker creates a performance checker; scorer may be nil.
func NewPerformanceChecker(scorer Scorer, timing TimingSource, strategy string) *PerformanceChecker {
	return &PerformanceChecker{scorer: scorer, timing: timing, strategy: strategy}
}

// Check scores up to maxPerformancePages pages. A page that cannot be
// scored at all produces a zero-score record; the batch never aborts.
func (c *PerformanceChecker) Check(ctx context.Context, deployedURL string, inv *inventory.SiteInventory) []PerformanceResult {
	deployed, err := url.Parse(deployedURL)
	if err != nil {
		logging.Error("performance: bad deployed url %s: %v", deployedURL, err)
		return nil
	}

	pages := inv.Pages
	if len(pages) > maxPerformancePages {
		pages = pages[:maxPerformancePages]
	}

	var results []PerformanceResult
	for _, page := range pages {
		target := *deployed
		target.Path = page.Path
		results = append(results, c.scorePage(ctx, page.Path, target.String()))
	}
	return results
}

func (c *PerformanceChecker) scorePage(ctx context.Context, pagePath, pageURL string) PerformanceResult {
	result := PerformanceResult{PagePath: pagePath}

	if c.scorer != nil {
		score, vitals, err := c.scorer.Score(ctx, pageURL, c.strategy)
		if err == nil {
			result.Score = score
			result.Vitals = vitals
			result.Source = "api"
			return result
		}
		if !errors.Is(err, ErrScorerUnavailable) {
			logging.Warn("performance: scorer failed for %s: %v", pagePath, err)
		} else {
			logging.Info("performance: scorer unavailable, using heuristic for %s", pagePath)
		}
	}

	score, vitals, err := c.heuristicScore(pageURL)
	if err != nil {
		logging.Warn("performance: heuristic failed for %s: %v", pagePath, err)
		result.Error = err.Error()
		return result // zero score, conservative
	}

	result.Score = score
	result.Vitals = vitals
	result.Source = "heuristic"
	return result
}

// heuristicScore loads the page and derives a 0-100 score from TTFB and
// DOM-ready timings.
func (c *PerformanceChecker) heuristicScore(pageURL string) (float64, map[string]float64, error) {
	if err := c.timing.Navigate(pageURL); err != nil {
		return 0, nil, err
	}
	timing, err := c.timing.NavigationTiming()
	if err != nil {
		return 0, nil, err
	}

	score := HeuristicScore(timing.TTFBMs, timing.DOMReadyMs)
	vitals := map[string]float64{
		"ttfb_ms":      timing.TTFBMs,
		"dom_ready_ms": timing.DOMReadyMs,
		"load_ms":      timing.LoadMs,
	}
	return score, vitals, nil
}

// HeuristicScore maps TTFB and DOM-ready timings to a 0-100 score with
// capped penalties per threshold band.
func HeuristicScore(ttfbMs, domReadyMs float64) float64 {
	score := 100.0

	// TTFB bands: <200ms free, then 1 point per 50ms, capped at 30
	if ttfbMs > 200 {
		penalty := (ttfbMs - 200) / 50
		if penalty > 30 {
			penalty = 30
		}
		score -= penalty
	}

	// DOM-ready bands: <1.5s free, then 1 point per 150ms, capped at 40
	if domReadyMs > 1500 {
		penalty := (domReadyMs - 1500) / 150
		if penalty > 40 {
			penalty = 40
		}
		score -= penalty
	}

	if score < 0 {
		score = 0
	}
	return score
}
