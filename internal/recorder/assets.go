package recorder

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
)

// Asset classification patterns, checked in order. jquery core must be
// tested before plugins so "jquery.min.js" never matches the plugin rule.
var (
	jqueryCorePattern   = regexp.MustCompile(`(?i)/jquery([.-][0-9.]+)?(\.min|\.slim)*\.js`)
	jqueryPluginPattern = regexp.MustCompile(`(?i)(jquery[.-][a-z]|slick|owl\.carousel|fancybox|magnific|waypoints|flexslider)`)
	analyticsPattern    = regexp.MustCompile(`(?i)(google-analytics|googletagmanager|gtag|analytics\.js|fbevents|hotjar|clarity\.ms|segment\.com|mixpanel)`)
	bloatPattern        = regexp.MustCompile(`(?i)(elementor|jetpack|revslider|wp-emoji|wow\.js|animate\.min|font.?awesome.*\.js|bootstrap\.bundle)`)
)

// classifyAsset buckets a script or stylesheet URL.
func classifyAsset(assetURL string) inventory.AssetCategory {
	switch {
	case jqueryCorePattern.MatchString(assetURL):
		return inventory.AssetJquery
	case jqueryPluginPattern.MatchString(assetURL):
		return inventory.AssetJqueryPlugin
	case analyticsPattern.MatchString(assetURL):
		return inventory.AssetAnalytics
	case bloatPattern.MatchString(assetURL):
		return inventory.AssetBloat
	default:
		return inventory.AssetOther
	}
}

// collectAssets appends the page's scripts and styles to the shared lists,
// deduplicating by URL across pages with first-seen-wins.
func collectAssets(pagePath, html string, scripts, styles *[]inventory.AssetRef) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	seenScripts := make(map[string]bool, len(*scripts))
	for _, s := range *scripts {
		seenScripts[s.URL] = true
	}
	seenStyles := make(map[string]bool, len(*styles))
	for _, s := range *styles {
		seenStyles[s.URL] = true
	}

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || seenScripts[src] {
			return
		}
		seenScripts[src] = true
		*scripts = append(*scripts, inventory.AssetRef{
			URL:       src,
			Category:  classifyAsset(src),
			FirstSeen: pagePath,
		})
	})

	doc.Find("link[rel='stylesheet'][href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || seenStyles[href] {
			return
		}
		seenStyles[href] = true
		*styles = append(*styles, inventory.AssetRef{
			URL:       href,
			Category:  classifyAsset(href),
			FirstSeen: pagePath,
		})
	})
}
