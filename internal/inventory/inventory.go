// Package inventory holds the baseline data model: everything the recorder
// captures about a site before optimization, consumed read-only by the
// verifiers afterwards.
package inventory

import "time"

// ElementType classifies a detected interactive affordance.
type ElementType string

const (
	ElementDropdown  ElementType = "dropdown"
	ElementHamburger ElementType = "hamburger-menu"
	ElementSlider    ElementType = "slider"
	ElementAccordion ElementType = "accordion"
	ElementTab       ElementType = "tab"
	ElementModal     ElementType = "modal"
	ElementForm      ElementType = "form"
	ElementLink      ElementType = "link"
)

// TriggerAction is how an element is activated.
type TriggerAction string

const (
	TriggerClick TriggerAction = "click"
	TriggerHover TriggerAction = "hover"
)

// AssetCategory classifies a script or stylesheet URL.
type AssetCategory string

const (
	AssetBloat        AssetCategory = "bloat"
	AssetJquery       AssetCategory = "jquery"
	AssetJqueryPlugin AssetCategory = "jquery-plugin"
	AssetAnalytics    AssetCategory = "analytics"
	AssetOther        AssetCategory = "other"
)

// BaselineResult records the outcome of a single baseline capture attempt.
type BaselineResult string

const (
	BaselineRecorded          BaselineResult = "recorded"
	BaselineElementNotFound   BaselineResult = "element-not-found"
	BaselineInteractionFailed BaselineResult = "interaction-failed"
)

// SiteInventory is the immutable baseline artifact produced once per run.
type SiteInventory struct {
	URL                 string               `json:"url"`
	Pages               []PageInventory      `json:"pages"`
	Scripts             []AssetRef           `json:"scripts"`
	Styles              []AssetRef           `json:"styles"`
	InteractiveElements []InteractiveElement `json:"interactive_elements"`
	BaselineScreenshots []Screenshot         `json:"baseline_screenshots"`
	BaselineBehavior    []FunctionalBaseline `json:"baseline_behavior"`
	CapturedAt          time.Time            `json:"captured_at"`
}

// PageInventory describes one crawled page.
type PageInventory struct {
	Path         string `json:"path"`
	Title        string `json:"title"`
	SizeBytes    int    `json:"size_bytes"`
	HasForm      bool   `json:"has_form"`
	HasSlider    bool   `json:"has_slider"`
	HasAccordion bool   `json:"has_accordion"`
	HasVideo     bool   `json:"has_video"`
	HasModal     bool   `json:"has_modal"`
	HasTabs      bool   `json:"has_tabs"`
}

// AssetRef is a script or stylesheet discovered on some page, deduplicated
// by URL across the whole crawl (first seen wins).
type AssetRef struct {
	URL       string        `json:"url"`
	Category  AssetCategory `json:"category"`
	FirstSeen string        `json:"first_seen"` // page path
}

// InteractiveElement is a detected UI affordance on one page.
type InteractiveElement struct {
	Type             ElementType   `json:"type"`
	PagePath         string        `json:"page_path"`
	Selector         string        `json:"selector"`
	TriggerAction    TriggerAction `json:"trigger_action"`
	ExpectedBehavior string        `json:"expected_behavior"`
	DependsOnJquery  bool          `json:"depends_on_jquery"`
}

// BoundingBox is an element's position and size in CSS pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementState is a point-in-time DOM snapshot of one element.
type ElementState struct {
	Exists           bool              `json:"exists"`
	IsVisible        bool              `json:"is_visible"`
	BoundingBox      BoundingBox       `json:"bounding_box"`
	ComputedStyle    map[string]string `json:"computed_style,omitempty"` // display, visibility, opacity, max-height
	ClassList        []string          `json:"class_list,omitempty"`
	InnerTextPrefix  string            `json:"inner_text_prefix,omitempty"` // first 120 chars
	ActiveSlideIndex *int              `json:"active_slide_index,omitempty"`
}

// FunctionalBaseline is the recorded ground truth for one element: the
// element, the capture outcome, and the before/after state of one replay.
type FunctionalBaseline struct {
	Element     InteractiveElement `json:"element"`
	Result      BaselineResult     `json:"result"`
	StateBefore *ElementState      `json:"state_before,omitempty"`
	StateAfter  *ElementState      `json:"state_after,omitempty"`
	Passed      bool               `json:"passed"`
}

// Viewport is a named capture size.
type Viewport struct {
	Name   string  `json:"name"`
	Width  int64   `json:"width"`
	Height int64   `json:"height"`
	Scale  float64 `json:"scale"`
}

// Viewports returns the three fixed capture viewports.
func Viewports() []Viewport {
	return []Viewport{
		{Name: "desktop", Width: 1920, Height: 1080, Scale: 1},
		{Name: "tablet", Width: 768, Height: 1024, Scale: 1},
		{Name: "mobile", Width: 375, Height: 812, Scale: 2},
	}
}

// Screenshot is one captured (page, viewport) pair. Image bytes live on
// disk under the run work dir; the inventory stores paths only.
type Screenshot struct {
	PagePath     string `json:"page_path"`
	Viewport     string `json:"viewport"`
	FullPagePath string `json:"full_page_path"`
	AboveFold    string `json:"above_fold_path"`
}
