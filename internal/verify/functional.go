package verify

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// State comparison tolerances.
const (
	boundingBoxTolerancePx = 10.0
)

// FunctionalChecker replays recorded interactions against the deployed
// site and compares the resulting element state to the baseline.
type FunctionalChecker struct {
	browser        Browser
	settleInterval time.Duration
}

// NewFunctionalChecker creates a functional checker.
func NewFunctionalChecker(b Browser, settleInterval time.Duration) *FunctionalChecker {
	return &FunctionalChecker{browser: b, settleInterval: settleInterval}
}

// Check replays every baseline with Passed=true. Baselines that failed at
// capture time have no valid ground truth and are excluded entirely.
func (c *FunctionalChecker) Check(deployedURL string, inv *inventory.SiteInventory) []FunctionalResult {
	deployed, err := url.Parse(deployedURL)
	if err != nil {
		logging.Error("functional: bad deployed url %s: %v", deployedURL, err)
		return nil
	}

	byPage := make(map[string][]inventory.FunctionalBaseline)
	for _, b := range inv.BaselineBehavior {
		if !b.Passed {
			continue
		}
		byPage[b.Element.PagePath] = append(byPage[b.Element.PagePath], b)
	}

	pages := make([]string, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Strings(pages)

	var results []FunctionalResult
	for _, pagePath := range pages {
		baselines := byPage[pagePath]

		target := *deployed
		target.Path = pagePath
		if err := c.browser.Navigate(target.String()); err != nil {
			logging.Warn("functional: page %s unreachable: %v", pagePath, err)
			for _, b := range baselines {
				results = append(results, FunctionalResult{
					Element: b.Element,
					Passed:  false,
					Reason:  fmt.Sprintf("page unreachable: %v", err),
				})
			}
			continue
		}

		for i, b := range baselines {
			results = append(results, c.replayOne(b))
			if i < len(baselines)-1 {
				if err := c.browser.Reload(); err != nil {
					logging.Warn("functional: reload on %s failed: %v", pagePath, err)
				}
			}
		}
	}

	return results
}

// replayOne triggers one element the same way the baseline did and
// compares the after states.
func (c *FunctionalChecker) replayOne(b inventory.FunctionalBaseline) FunctionalResult {
	result := FunctionalResult{Element: b.Element}

	state, err := c.browser.ElementState(b.Element.Selector)
	if err != nil || !state.Exists {
		result.Reason = "element missing on deployed page"
		return result
	}

	switch b.Element.TriggerAction {
	case inventory.TriggerHover:
		err = c.browser.Hover(b.Element.Selector)
	default:
		err = c.browser.Click(b.Element.Selector)
	}
	if err != nil {
		result.Reason = fmt.Sprintf("trigger failed: %v", err)
		return result
	}

	time.Sleep(c.settleInterval)

	after, err := c.browser.ElementState(b.Element.Selector)
	if err != nil {
		result.Reason = fmt.Sprintf("state capture failed: %v", err)
		return result
	}

	if mismatch := CompareStates(b.StateAfter, after); mismatch != "" {
		result.Reason = mismatch
		return result
	}

	result.Passed = true
	return result
}

// CompareStates compares a replayed after-state to the baseline one within
// tolerance. Returns an empty string on match, otherwise the first
// divergence found.
func CompareStates(baseline, candidate *inventory.ElementState) string {
	if baseline == nil {
		// no ground truth at all; treat presence as a match
		return ""
	}
	if candidate == nil || !candidate.Exists {
		return "element disappeared after trigger"
	}

	if baseline.IsVisible != candidate.IsVisible {
		return fmt.Sprintf("visibility diverged: baseline=%v deployed=%v", baseline.IsVisible, candidate.IsVisible)
	}

	if d := boxDelta(baseline.BoundingBox, candidate.BoundingBox); d > boundingBoxTolerancePx {
		return fmt.Sprintf("bounding box moved %.0fpx (tolerance %.0fpx)", d, boundingBoxTolerancePx)
	}

	if baseline.ActiveSlideIndex != nil {
		if candidate.ActiveSlideIndex == nil {
			return "active slide index missing on deployed page"
		}
		if *baseline.ActiveSlideIndex != *candidate.ActiveSlideIndex {
			return fmt.Sprintf("active slide diverged: baseline=%d deployed=%d",
				*baseline.ActiveSlideIndex, *candidate.ActiveSlideIndex)
		}
	}

	if !sameClassSet(baseline.ClassList, candidate.ClassList) {
		return "class list diverged"
	}

	return ""
}

// boxDelta is the largest absolute coordinate/size difference between two
// bounding boxes.
func boxDelta(a, b inventory.BoundingBox) float64 {
	return math.Max(
		math.Max(math.Abs(a.X-b.X), math.Abs(a.Y-b.Y)),
		math.Max(math.Abs(a.Width-b.Width), math.Abs(a.Height-b.Height)),
	)
}

// sameClassSet compares class lists as sets, order-insensitive.
func sameClassSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, c := range a {
		set[c]++
	}
	for _, c := range b {
		set[c]--
		if set[c] < 0 {
			return false
		}
	}
	return true
}
