package recorder

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
)

// excludedPathPattern matches links that never belong in the page
// inventory: admin surfaces, auth pages, comment reply links, feeds.
var excludedPathPattern = regexp.MustCompile(`(?i)(wp-admin|wp-login|/admin\b|/login\b|/signin\b|/logout\b|replytocom=|/feed/?$|\.(pdf|zip|jpe?g|png|gif|webp|svg|mp4|webm)$)`)

// crawl discovers pages from the homepage and inventories each one.
func (r *Recorder) crawl(origin *url.URL, inv *inventory.SiteInventory) error {
	if err := r.browser.Navigate(origin.String()); err != nil {
		return err
	}

	homeHTML, err := r.browser.HTML()
	if err != nil {
		return err
	}

	paths := harvestAnchors(origin, homeHTML, maxPages)

	seen := make(map[string]bool)
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true

		page, html, err := r.inventoryPage(origin, path, homeHTML)
		if err != nil {
			logging.Warn("baseline: skipping page %s: %v", path, err)
			continue
		}
		inv.Pages = append(inv.Pages, *page)

		collectAssets(path, html, &inv.Scripts, &inv.Styles)

		elements := detectInteractiveElements(path, html, pageUsesJquery(html))
		inv.InteractiveElements = append(inv.InteractiveElements, elements...)
	}

	return nil
}

// inventoryPage loads one page and extracts its inventory entry. The
// homepage reuses the HTML already fetched during discovery.
func (r *Recorder) inventoryPage(origin *url.URL, path, homeHTML string) (*inventory.PageInventory, string, error) {
	var html string
	var title string

	if path == "/" {
		html = homeHTML
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	} else {
		if err := r.browser.Navigate(pageURL(origin, path)); err != nil {
			return nil, "", err
		}
		var err error
		html, err = r.browser.HTML()
		if err != nil {
			return nil, "", err
		}
		_, title, _ = r.browser.PageInfo()
	}

	page := extractPageFeatures(path, html)
	page.Title = title
	return page, html, nil
}

// harvestAnchors extracts same-origin page paths from anchor tags, deduped
// by path, excluding admin/login/reply-to links, capped at max. The
// homepage itself is always first.
func harvestAnchors(origin *url.URL, html string, max int) []string {
	paths := []string{"/"}
	seen := map[string]bool{"/": true}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return paths
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		path, ok := normalizeSiteLink(origin, href)
		if !ok || seen[path] {
			return true
		}
		seen[path] = true
		paths = append(paths, path)
		return len(paths) < max
	})

	return paths
}

// normalizeSiteLink resolves an href against the origin and reports
// whether it is a crawlable same-origin page path.
func normalizeSiteLink(origin *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "javascript:") {
		return "", false
	}

	resolved, err := origin.Parse(href)
	if err != nil {
		return "", false
	}
	if resolved.Host != origin.Host {
		return "", false
	}
	if excludedPathPattern.MatchString(resolved.Path) || excludedPathPattern.MatchString(resolved.RawQuery) {
		return "", false
	}

	path := resolved.Path
	if path == "" {
		path = "/"
	}
	return path, true
}

// extractPageFeatures builds a PageInventory from raw page HTML.
func extractPageFeatures(path, html string) *inventory.PageInventory {
	page := &inventory.PageInventory{
		Path:      path,
		SizeBytes: len(html),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return page
	}

	page.HasForm = doc.Find("form").Length() > 0
	page.HasSlider = doc.Find(".swiper, .slick-slider, .owl-carousel, .carousel, .splide").Length() > 0
	page.HasAccordion = doc.Find(".accordion, .ui-accordion, [data-accordion], details").Length() > 0
	page.HasVideo = doc.Find("video, iframe[src*='youtube'], iframe[src*='vimeo']").Length() > 0
	page.HasModal = doc.Find("[data-toggle='modal'], [data-modal], .modal-trigger, [data-fancybox]").Length() > 0
	page.HasTabs = doc.Find("[role='tablist'], .nav-tabs, .tabs").Length() > 0

	return page
}

// pageUsesJquery reports whether the page loads jQuery.
func pageUsesJquery(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	found := false
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if classifyAsset(src) == inventory.AssetJquery {
			found = true
			return false
		}
		return true
	})
	return found
}
