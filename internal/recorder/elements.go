package recorder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
)

// elementFamily maps known CSS-selector families to an element type.
type elementFamily struct {
	Type     inventory.ElementType
	Selector string
	Trigger  inventory.TriggerAction
	Behavior string
}

// Families are matched in order; an element claimed by an earlier family
// is not reconsidered by later ones.
var elementFamilies = []elementFamily{
	{inventory.ElementHamburger, ".hamburger, .menu-toggle, .navbar-toggle, .navbar-toggler, .mobile-menu-toggle", inventory.TriggerClick, "opens the mobile navigation menu"},
	{inventory.ElementDropdown, ".dropdown, .menu-item-has-children, [data-toggle='dropdown'], .has-dropdown", inventory.TriggerHover, "reveals a submenu"},
	{inventory.ElementSlider, ".swiper, .slick-slider, .owl-carousel, .carousel, .splide", inventory.TriggerClick, "advances to the next slide"},
	{inventory.ElementAccordion, ".accordion, .ui-accordion, [data-accordion], .elementor-accordion, details", inventory.TriggerClick, "expands the section content"},
	{inventory.ElementTab, "[role='tablist'], .nav-tabs, .tabs, .elementor-tabs", inventory.TriggerClick, "switches the visible tab panel"},
	{inventory.ElementModal, "[data-toggle='modal'], [data-modal], .modal-trigger, [data-fancybox], .popup-trigger", inventory.TriggerClick, "opens a modal overlay"},
	{inventory.ElementForm, "form", inventory.TriggerClick, "accepts user input"},
	{inventory.ElementLink, "nav a[href], .menu a[href]", inventory.TriggerClick, "navigates to another page"},
}

// jqueryDependentTypes interact through jQuery plugins when the page loads
// jQuery; their behavior breaks if the optimizer defers or drops it.
var jqueryDependentTypes = map[inventory.ElementType]bool{
	inventory.ElementSlider:    true,
	inventory.ElementAccordion: true,
	inventory.ElementModal:     true,
}

// dynamicClassPattern matches generated class names useless as selectors.
var dynamicClassPattern = regexp.MustCompile(`(?i)(^css-|^sc-|^jsx-|^_|[0-9a-f]{8,})`)

// detectInteractiveElements finds up to maxElementsPerPage affordances on
// one page and assigns each a best-effort stable selector.
func detectInteractiveElements(pagePath, pageHTML string, hasJquery bool) []inventory.InteractiveElement {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	var elements []inventory.InteractiveElement
	claimed := make(map[*html.Node]bool)

	for _, family := range elementFamilies {
		if len(elements) >= maxElementsPerPage {
			break
		}
		doc.Find(family.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			node := s.Get(0)
			if claimed[node] {
				return true
			}
			claimed[node] = true

			elements = append(elements, inventory.InteractiveElement{
				Type:             family.Type,
				PagePath:         pagePath,
				Selector:         stableSelector(doc, s),
				TriggerAction:    family.Trigger,
				ExpectedBehavior: family.Behavior,
				DependsOnJquery:  hasJquery && jqueryDependentTypes[family.Type],
			})
			return len(elements) < maxElementsPerPage
		})
	}

	return elements
}

// stableSelector builds a best-effort stable selector for an element:
// id when present, otherwise a short class combination matching at most 3
// elements in the document, otherwise the bare tag.
func stableSelector(doc *goquery.Document, s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}

	tag := goquery.NodeName(s)

	if classAttr, ok := s.Attr("class"); ok {
		var usable []string
		for _, c := range strings.Fields(classAttr) {
			if !dynamicClassPattern.MatchString(c) {
				usable = append(usable, c)
			}
			if len(usable) == 2 {
				break
			}
		}
		if len(usable) > 0 {
			candidate := tag + "." + strings.Join(usable, ".")
			if n := doc.Find(candidate).Length(); n >= 1 && n <= 3 {
				return candidate
			}
			// class combo alone, without the tag
			candidate = "." + strings.Join(usable, ".")
			if n := doc.Find(candidate).Length(); n >= 1 && n <= 3 {
				return candidate
			}
		}
	}

	return tag
}

// describeElement is used in logs only.
func describeElement(el inventory.InteractiveElement) string {
	return fmt.Sprintf("%s %s on %s", el.Type, el.Selector, el.PagePath)
}
