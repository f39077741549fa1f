package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
)

// fakeBrowser serves scripted element states per selector; the last
// state repeats once the queue drains.
type fakeBrowser struct {
	navErr error
	states map[string][]*inventory.ElementState

	navigated []string
	clicks    []string
	hovers    []string
}

func (f *fakeBrowser) Navigate(u string) error {
	f.navigated = append(f.navigated, u)
	return f.navErr
}
func (f *fakeBrowser) Reload() error                        { return nil }
func (f *fakeBrowser) SetViewport(inventory.Viewport) error { return nil }
func (f *fakeBrowser) ClearViewport() error                 { return nil }
func (f *fakeBrowser) ScrollFullPage() error                { return nil }

func (f *fakeBrowser) FullScreenshot() ([]byte, error) {
	return nil, errors.New("no screenshot scripted")
}

func (f *fakeBrowser) Click(sel string) error {
	f.clicks = append(f.clicks, sel)
	return nil
}

func (f *fakeBrowser) Hover(sel string) error {
	f.hovers = append(f.hovers, sel)
	return nil
}

func (f *fakeBrowser) ElementState(sel string) (*inventory.ElementState, error) {
	queue := f.states[sel]
	if len(queue) == 0 {
		return &inventory.ElementState{}, nil
	}
	state := queue[0]
	if len(queue) > 1 {
		f.states[sel] = queue[1:]
	}
	return state, nil
}

func visibleState() *inventory.ElementState {
	return &inventory.ElementState{
		Exists:      true,
		IsVisible:   true,
		BoundingBox: inventory.BoundingBox{X: 10, Y: 20, Width: 300, Height: 40},
		ClassList:   []string{"menu", "open"},
	}
}

func behaviorInventory(baselines ...inventory.FunctionalBaseline) *inventory.SiteInventory {
	return &inventory.SiteInventory{
		URL:              "https://example.com",
		Pages:            []inventory.PageInventory{{Path: "/"}},
		BaselineBehavior: baselines,
	}
}

func clickBaseline(selector string, passed bool) inventory.FunctionalBaseline {
	return inventory.FunctionalBaseline{
		Element: inventory.InteractiveElement{
			Type:          inventory.ElementAccordion,
			PagePath:      "/",
			Selector:      selector,
			TriggerAction: inventory.TriggerClick,
		},
		Result:     inventory.BaselineRecorded,
		StateAfter: visibleState(),
		Passed:     passed,
	}
}

func TestFunctionalCheckExcludesFailedBaselines(t *testing.T) {
	browser := &fakeBrowser{states: map[string][]*inventory.ElementState{
		"#good": {visibleState()},
	}}
	checker := NewFunctionalChecker(browser, 0)

	inv := behaviorInventory(
		clickBaseline("#good", true),
		clickBaseline("#never-recorded", false),
	)

	results := checker.Check("https://edge.example.net", inv)

	require.Len(t, results, 1, "baselines without valid ground truth are excluded")
	assert.Equal(t, "#good", results[0].Element.Selector)
	assert.True(t, results[0].Passed)
	assert.NotContains(t, browser.clicks, "#never-recorded")
}

func TestFunctionalCheckReplaysAgainstDeployedOrigin(t *testing.T) {
	browser := &fakeBrowser{states: map[string][]*inventory.ElementState{
		"#good": {visibleState()},
	}}
	checker := NewFunctionalChecker(browser, 0)

	checker.Check("https://edge.example.net", behaviorInventory(clickBaseline("#good", true)))

	require.NotEmpty(t, browser.navigated)
	assert.Equal(t, "https://edge.example.net/", browser.navigated[0])
	assert.Equal(t, []string{"#good"}, browser.clicks)
}

func TestFunctionalCheckHoverTrigger(t *testing.T) {
	hover := clickBaseline(".dropdown", true)
	hover.Element.TriggerAction = inventory.TriggerHover

	browser := &fakeBrowser{states: map[string][]*inventory.ElementState{
		".dropdown": {visibleState()},
	}}
	checker := NewFunctionalChecker(browser, 0)

	results := checker.Check("https://edge.example.net", behaviorInventory(hover))

	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Equal(t, []string{".dropdown"}, browser.hovers)
	assert.Empty(t, browser.clicks)
}

func TestFunctionalCheckUnreachablePageFailsAll(t *testing.T) {
	browser := &fakeBrowser{navErr: errors.New("connection refused")}
	checker := NewFunctionalChecker(browser, 0)

	inv := behaviorInventory(
		clickBaseline("#one", true),
		clickBaseline("#two", true),
	)

	results := checker.Check("https://edge.example.net", inv)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Passed)
		assert.Contains(t, r.Reason, "page unreachable")
	}
}

func TestFunctionalCheckStateDivergenceFails(t *testing.T) {
	hidden := visibleState()
	hidden.IsVisible = false

	browser := &fakeBrowser{states: map[string][]*inventory.ElementState{
		"#good": {visibleState(), hidden},
	}}
	checker := NewFunctionalChecker(browser, 0)

	results := checker.Check("https://edge.example.net", behaviorInventory(clickBaseline("#good", true)))

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Reason, "visibility diverged")
}

func TestFunctionalCheckMissingElementFails(t *testing.T) {
	browser := &fakeBrowser{states: map[string][]*inventory.ElementState{
		"#gone": {{Exists: false}},
	}}
	checker := NewFunctionalChecker(browser, 0)

	results := checker.Check("https://edge.example.net", behaviorInventory(clickBaseline("#gone", true)))

	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, "element missing on deployed page", results[0].Reason)
	assert.Empty(t, browser.clicks, "a missing element is never triggered")
}
