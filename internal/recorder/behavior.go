package recorder

import (
	"net/url"
	"time"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// recordBehavior replays each selected element once against the live site
// and records its before/after state as ground truth. Lookup and trigger
// failures yield a failed baseline entry rather than aborting the page.
func (r *Recorder) recordBehavior(origin *url.URL, inv *inventory.SiteInventory) {
	byPage := selectBehaviorElements(inv.InteractiveElements)

	for _, page := range inv.Pages {
		elements := byPage[page.Path]
		if len(elements) == 0 {
			continue
		}

		if err := r.browser.Navigate(pageURL(origin, page.Path)); err != nil {
			logging.Warn("baseline: behavior page %s unreachable: %v", page.Path, err)
			for _, el := range elements {
				inv.BaselineBehavior = append(inv.BaselineBehavior, inventory.FunctionalBaseline{
					Element: el,
					Result:  inventory.BaselineElementNotFound,
					Passed:  false,
				})
			}
			continue
		}

		for i, el := range elements {
			inv.BaselineBehavior = append(inv.BaselineBehavior, r.recordElement(el))

			// reload between elements so each starts from a clean page
			if i < len(elements)-1 {
				if err := r.browser.Reload(); err != nil {
					logging.Warn("baseline: reload on %s failed: %v", page.Path, err)
				}
			}
		}
	}
}

// recordElement captures one element's before state, triggers it, waits
// the settle interval and captures the after state.
func (r *Recorder) recordElement(el inventory.InteractiveElement) inventory.FunctionalBaseline {
	baseline := inventory.FunctionalBaseline{Element: el}

	before, err := r.browser.ElementState(el.Selector)
	if err != nil || !before.Exists {
		logging.Debug("baseline: %s not found", describeElement(el))
		baseline.Result = inventory.BaselineElementNotFound
		return baseline
	}
	baseline.StateBefore = before

	// trigger errors are swallowed; the state comparison decides the outcome
	switch el.TriggerAction {
	case inventory.TriggerHover:
		if err := r.browser.Hover(el.Selector); err != nil {
			logging.Debug("baseline: hover failed for %s: %v", describeElement(el), err)
		}
	default:
		if err := r.browser.Click(el.Selector); err != nil {
			logging.Debug("baseline: click failed for %s: %v", describeElement(el), err)
		}
	}

	time.Sleep(r.settleInterval)

	after, err := r.browser.ElementState(el.Selector)
	if err != nil {
		baseline.Result = inventory.BaselineInteractionFailed
		return baseline
	}
	baseline.StateAfter = after
	baseline.Result = inventory.BaselineRecorded
	baseline.Passed = true
	return baseline
}

// selectBehaviorElements picks up to maxBehaviorElements non-link elements,
// grouped by page with at most maxBehaviorPerPage each. Forms are skipped
// too: submitting a live form mutates site state.
func selectBehaviorElements(all []inventory.InteractiveElement) map[string][]inventory.InteractiveElement {
	byPage := make(map[string][]inventory.InteractiveElement)
	total := 0

	for _, el := range all {
		if total >= maxBehaviorElements {
			break
		}
		if el.Type == inventory.ElementLink || el.Type == inventory.ElementForm {
			continue
		}
		if len(byPage[el.PagePath]) >= maxBehaviorPerPage {
			continue
		}
		byPage[el.PagePath] = append(byPage[el.PagePath], el)
		total++
	}

	return byPage
}
